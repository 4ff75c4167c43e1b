package entity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/crimson-sun/trendwatch/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKey(t *testing.T) {
	r := New()
	tests := []struct {
		raw  string
		want string
	}{
		{"Acme Inc.", "acme"},
		{"ACME INC", "acme"},
		{"  acme,   inc ", "acme"},
		{"Médtronic S.A.", "medtronic"},
		{"Boston Scientific Corporation", "boston scientific"},
		{"Smith & Nephew PLC", "smith nephew"},
		{"Zimmer Biomet Holdings Co. Ltd.", "zimmer biomet holdings"},
		{"Inc", "inc"},
		{"O'Neil Devices", "oneil devices"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Key(tt.raw))
		})
	}
}

func TestDeterministicMerge(t *testing.T) {
	r := New()
	a := r.Resolve("Acme Inc.")
	b := r.Resolve("ACME INC")

	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, "Acme Inc.", b.CanonicalName)
	assert.Equal(t, []string{"ACME INC", "Acme Inc."}, b.Aliases)
	assert.Equal(t, model.EntityDeterministic, b.Tier)
	require.Len(t, r.Identities(), 1)
	assert.Equal(t, "Acme Inc.", r.Canonical("acme   inc"))
}

func TestLookup(t *testing.T) {
	r := New()
	r.Resolve("Globex Corp")
	name, ok := r.Lookup("GLOBEX")
	require.True(t, ok)
	assert.Equal(t, "Globex Corp", name)

	_, ok = r.Lookup("Initech")
	assert.False(t, ok)
	assert.Len(t, r.Identities(), 1)
}

func TestWithSuffixes(t *testing.T) {
	r := New(WithSuffixes([]string{"Devices"}))
	assert.Equal(t, "oneil", r.Key("O'Neil Devices"))
	assert.Equal(t, "acme inc", r.Key("Acme Inc."))
}

type stubVerifier struct {
	same  map[[2]string]bool
	err   map[[2]string]error
	calls atomic.Int32
}

func (s *stubVerifier) VerifyEntity(_ context.Context, a, b string) (bool, error) {
	s.calls.Add(1)
	k := [2]string{a, b}
	if err := s.err[k]; err != nil {
		return false, err
	}
	return s.same[k] || s.same[[2]string{b, a}], nil
}

func TestVerifyMergesIntoHigherVolume(t *testing.T) {
	v := &stubVerifier{same: map[[2]string]bool{{"Globex", "Initrode"}: true}}
	r := New(WithVerifier(v, 0, 0))
	for _, n := range []string{"Globex", "Initrode", "Acme", "Initrode Ltd"} {
		r.Resolve(n)
	}

	merges, err := r.Verify(context.Background(), map[string]int{"Globex": 10, "Initrode": 3, "Acme": 5})
	require.NoError(t, err)
	assert.Equal(t, 1, merges)
	assert.Equal(t, int32(3), v.calls.Load())

	ids := r.Identities()
	require.Len(t, ids, 2)
	assert.Equal(t, "Acme", ids[0].CanonicalName)
	assert.Equal(t, "Globex", ids[1].CanonicalName)
	assert.Equal(t, model.EntityExternalVerified, ids[1].Tier)
	assert.Equal(t, []string{"Globex", "Initrode", "Initrode Ltd"}, ids[1].Aliases)
	assert.Equal(t, "Globex", r.Canonical("Initrode Ltd"))
}

func TestVerifyChainKeepsLargestRoot(t *testing.T) {
	v := &stubVerifier{same: map[[2]string]bool{
		{"Bravo", "Delta"}:   true,
		{"Charlie", "Delta"}: true,
	}}
	r := New(WithVerifier(v, 0, 0))
	for _, n := range []string{"Delta", "Charlie", "Bravo"} {
		r.Resolve(n)
	}

	merges, err := r.Verify(context.Background(), map[string]int{"Bravo": 10, "Charlie": 5, "Delta": 3})
	require.NoError(t, err)
	assert.Equal(t, 2, merges)

	ids := r.Identities()
	require.Len(t, ids, 1)
	assert.Equal(t, "Bravo", ids[0].CanonicalName)
	assert.Equal(t, model.EntityExternalVerified, ids[0].Tier)
	assert.Equal(t, "Bravo", r.Canonical("Charlie"))
	assert.Equal(t, "Bravo", r.Canonical("Delta"))
}

func TestVerifyLimitAndFailures(t *testing.T) {
	v := &stubVerifier{err: map[[2]string]error{{"A Co", "B Co"}: errors.New("unavailable")}}
	r := New(WithVerifier(v, 2, 0))
	for _, n := range []string{"A Co", "B Co", "C Co"} {
		r.Resolve(n)
	}

	merges, err := r.Verify(context.Background(), map[string]int{"A Co": 3, "B Co": 2, "C Co": 1})
	require.NoError(t, err)
	assert.Zero(t, merges)
	assert.Equal(t, int32(1), v.calls.Load())
	assert.Equal(t, 1, r.Failures())
	assert.Len(t, r.Identities(), 3)
}

func TestVerifyWithoutVerifier(t *testing.T) {
	r := New()
	r.Resolve("A")
	r.Resolve("B")
	merges, err := r.Verify(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, merges)
}

func TestVerifyCanceled(t *testing.T) {
	v := &stubVerifier{}
	r := New(WithVerifier(v, 0, 0))
	r.Resolve("A")
	r.Resolve("B")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Verify(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
