package trendwatch_test

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/crimson-sun/trendwatch/internal/engine/testdata"
	"github.com/crimson-sun/trendwatch/pkg/trendwatch"
)

func Example() {
	tw, err := trendwatch.New(trendwatch.WithAnnexCSV(bytes.NewReader(testdata.AnnexCSV())))
	if err != nil {
		log.Fatal(err)
	}
	defer tw.Close()

	code := tw.Resolve(context.Background(), "A050101")
	fmt.Printf("%s %s (%s)\n", code.Level3, code.Term, code.Tier)
	// Output:
	// A050101 Fracture (exact)
}
