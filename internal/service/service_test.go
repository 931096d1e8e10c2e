package service

import (
	"io"
	"log/slog"
	"testing"

	"campus_api/internal/query"
	"campus_api/internal/repository"
	"campus_api/internal/schema"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResources(t *testing.T) (*schema.Registry, *repository.MemStore, *ResourceService) {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	store := repository.NewMemStore()
	return reg, store, NewResourceService(store, query.Options{DefaultLimit: 10, MaxLimit: 50})
}
