package catalog_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CatalogStore/internal/catalog"
)

func TestFileStore_LoadMissingOrBlank(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	got, err := catalog.NewFileStore(filepath.Join(dir, "missing.json")).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	for name, body := range map[string]string{"empty.json": "", "blank.json": " \n\t"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		got, err := catalog.NewFileStore(path).Load(ctx)
		require.NoError(t, err, name)
		assert.Empty(t, got, name)
	}
}

func TestFileStore_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":1,`), 0o644))

	_, err := catalog.NewFileStore(path).Load(context.Background())
	require.ErrorIs(t, err, catalog.ErrPersistence)

	var perr *catalog.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
}

func TestFileStore_LoadMalformedMovesFileAside(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	body := []byte(`[{"id":1,"code":"A"},`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	s := catalog.NewFileStore(path)
	assert.Equal(t, path, s.Path())
	_, err := s.Load(ctx)
	require.ErrorIs(t, err, catalog.ErrPersistence)
	assert.Contains(t, err.Error(), ".corrupt-")

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	aside, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, aside, 1)
	raw, err := os.ReadFile(aside[0])
	require.NoError(t, err)
	assert.Equal(t, body, raw)

	// Starting empty and saving must not clobber the quarantined copy.
	require.NoError(t, s.Save(ctx, []catalog.Product{{ID: 1, Code: "B"}}))
	raw, err = os.ReadFile(aside[0])
	require.NoError(t, err)
	assert.Equal(t, body, raw)
}

func TestFileStore_SaveWritesJSONArray(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	s := catalog.NewFileStore(path)

	require.NoError(t, s.Save(ctx, nil))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	products := []catalog.Product{
		{ID: 1, Title: "producto prueba", Description: "Este es un producto prueba", Price: 200, Thumbnail: "Sin imagen", Code: "abc123", Stock: 25},
		{ID: 2, Title: "producto prueba 2", Description: "Este es un otro producto prueba", Price: 150.5, Thumbnail: "Sin imagen tampoco", Code: "abc456", Stock: 100},
	}
	require.NoError(t, s.Save(ctx, products))

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":1,"title":"producto prueba","description":"Este es un producto prueba","price":200,"thumbnail":"Sin imagen","code":"abc123","stock":25},
		{"id":2,"title":"producto prueba 2","description":"Este es un otro producto prueba","price":150.5,"thumbnail":"Sin imagen tampoco","code":"abc456","stock":100}
	]`, string(raw))

	got, err := catalog.NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, products, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, "products.json", entries[0].Name())
}

func TestFileStore_SaveFailureKeepsPreviousFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "products.json")
	s := catalog.NewFileStore(path)
	require.NoError(t, s.Save(ctx, []catalog.Product{{ID: 1, Code: "A", Price: 10}}))

	// NaN has no JSON encoding, so this save fails.
	err := s.Save(ctx, []catalog.Product{{ID: 2, Code: "B", Price: math.NaN()}})
	require.ErrorIs(t, err, catalog.ErrPersistence)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"","description":"","price":10,"thumbnail":"","code":"A","stock":0}]`, string(raw))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Product{{ID: 1, Code: "A", Price: 10}}, got)
}

func TestFileStore_FailedRenameCleansUpTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":1,"code":"A"}]`), 0o644))

	// A directory at the target path makes the final rename fail.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o755))

	err := catalog.NewFileStore(blocked).Save(ctx, []catalog.Product{{ID: 2, Code: "B"}})
	require.ErrorIs(t, err, catalog.ErrPersistence)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"products.json", "blocked"}, names)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"code":"A"}]`, string(raw))
}

func TestFileStore_SaveIntoMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "products.json")
	s := catalog.NewFileStore(path)

	require.ErrorIs(t, s.Save(context.Background(), nil), catalog.ErrPersistence)
	require.ErrorIs(t, s.Ping(context.Background()), catalog.ErrPersistence)
}
