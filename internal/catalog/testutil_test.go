package catalog_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"CatalogStore/internal/catalog"
)

func draft(i int) catalog.Draft {
	return catalog.Draft{
		Title:       fmt.Sprintf("Producto prueba %d", i),
		Description: "Este es un otro producto prueba",
		Price:       150,
		Thumbnail:   "Sin imagen tampoco",
		Code:        fmt.Sprintf("Producto%d", i),
		Stock:       100,
	}
}

func newManager(t *testing.T, store catalog.Storage, opts ...catalog.Option) *catalog.Manager {
	t.Helper()

	m, err := catalog.NewManager(context.Background(), store, opts...)
	require.NoError(t, err)
	return m
}

func seedN(t *testing.T, m *catalog.Manager, n int) []catalog.Product {
	t.Helper()

	out := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		p, err := m.Create(context.Background(), draft(i))
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}
