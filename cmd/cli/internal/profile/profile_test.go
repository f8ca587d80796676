package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "profile")

	p, err := Open(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, dir, p.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0700), info.Mode().Perm())

	require.NoError(t, p.Storage().Set(ctx, "key", []byte("value")))
	require.NoError(t, p.Close())

	reopened, err := Open(ctx, dir)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Storage().Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)
}
