package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trendwatch/internal/model"
)

type stubCapability struct{ cfg Config }

func (s *stubCapability) Classify(context.Context, string, []*model.Node) (Guess, error) {
	return Guess{}, nil
}
func (s *stubCapability) VerifyEntity(context.Context, string, string) (bool, error) {
	return false, nil
}
func (s *stubCapability) Close() error { return nil }

func TestOpenNone(t *testing.T) {
	for _, p := range []string{"", "none"} {
		c, err := Open(Config{Provider: p})
		require.NoError(t, err)
		assert.Nil(t, c)
	}
}

func TestOpenRegistered(t *testing.T) {
	Register("stub-test", func(cfg Config) (Capability, error) {
		return &stubCapability{cfg: cfg}, nil
	})
	defer delete(registry, "stub-test")

	c, err := Open(Config{Provider: "stub-test", Model: "m"})
	require.NoError(t, err)
	require.IsType(t, &stubCapability{}, c)
	assert.Equal(t, "m", c.(*stubCapability).cfg.Model)
	assert.Contains(t, Providers(), "stub-test")
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(Config{Provider: "does-not-exist"})
	assert.EqualError(t, err, "unknown capability provider: does-not-exist")
}
