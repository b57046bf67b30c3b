package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/readthrough"
)

func newReadthrough(t *testing.T) *readthrough.Cache {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	c, err := readthrough.New(store, readthrough.Options{Enabled: true}, nil, nil)
	require.NoError(t, err)
	return c
}
