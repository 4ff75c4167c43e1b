// Package trendwatch resolves adverse-event classification codes against an
// IMDRF annex and computes per-manufacturer trend baselines.
//
// Quick start:
//
//	tw, err := trendwatch.New(trendwatch.WithAnnexFile("annex.xlsx"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tw.Close()
//
//	res, _ := tw.AnalyzeFile(ctx, "maude.xlsx", trendwatch.Query{Prefix: "A05"})
//	fmt.Println(res.PrefixScoped.Mean, res.Band.Upper)
//
// Without an annex the engine runs prefix-only. A Trendwatch is safe for
// concurrent use.
package trendwatch
