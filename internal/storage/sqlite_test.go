//go:build cgo

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.sqlite"), nullLogger())
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.sqlite"), nullLogger())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SaveVariants(ctx, map[string][]string{"vulpix": {"vulpix-alola"}}))
	require.NoError(t, s.SaveVariants(ctx, map[string][]string{"vulpix": {"vulpix-alola", "vulpix-hisui"}}))

	variants, err := s.LoadVariants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vulpix-alola", "vulpix-hisui"}, variants["vulpix"])

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats.Backend)
	assert.Equal(t, 1, stats.Variants)
}
