package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/athapong/bim-synthesis/pkg/documents"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "level2"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("Volume: 25 m³"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("Volume: 10 m³"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level2", "c.html"), []byte("<p>Volume: 10 m³</p>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("not a pdf"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.ifc"), []byte("ISO-10303-21;"), 0644))
	return dir
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestReadInputFiles(t *testing.T) {
	dir := writeFiles(t)
	files, err := readInputFiles(documents.NewLoader(nil), dir)
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, filepath.Join(dir, "a.md"), files[0])
	assert.Equal(t, filepath.Join(dir, "notes.pdf"), files[3])
}

func TestBundleFromFiles(t *testing.T) {
	loader := documents.NewLoader(nil)
	files, err := readInputFiles(loader, writeFiles(t))
	require.NoError(t, err)
	query := model.QueryContext{QueryID: "q", OriginalQuery: "How much concrete?", Intent: model.IntentQuantity}
	ctx := context.Background()

	bundle := bundleFromFiles(ctx, quietLogger(), loader, files, query, false, 0.7)
	require.Len(t, bundle.Chunks, 3)
	assert.Empty(t, bundle.Sources)
	assert.Equal(t, "a", bundle.Chunks[0].ChunkID)
	assert.True(t, bundle.Chunks[0].Completed())
	assert.Equal(t, 0.7, bundle.Chunks[0].ConfidenceScore)
	assert.Contains(t, bundle.Chunks[2].Content, "Volume: 10 m³")

	bundle = bundleFromFiles(ctx, quietLogger(), loader, files, query, true, 0.7)
	assert.Empty(t, bundle.Chunks)
	require.Len(t, bundle.Sources, 3)
	assert.Equal(t, "c", bundle.Sources[2].ID)
}
