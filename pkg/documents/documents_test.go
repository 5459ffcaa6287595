package documents

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wordsCounter struct{}

func (wordsCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestChunkerSplit(t *testing.T) {
	text := "a b\nc d\ne f\n\ng h"

	chunks := NewChunker(wordsCounter{}, 4, 1).Split(text)
	assert.Equal(t, []string{"a b\nc d", "c d\ne f", "e f\ng h"}, chunks)

	chunks = NewChunker(wordsCounter{}, 4, 0).Split(text)
	assert.Equal(t, []string{"a b\nc d", "e f\ng h"}, chunks)

	chunks = NewChunker(wordsCounter{}, 100, 1).Split(text)
	assert.Equal(t, []string{"a b\nc d\ne f\ng h"}, chunks)
}

func TestChunkerSplitsLongLines(t *testing.T) {
	chunks := NewChunker(wordsCounter{}, 4, 0).Split("one two three four five six")
	assert.Equal(t, []string{"one two three four", "five six"}, chunks)
}

func TestChunkerEmpty(t *testing.T) {
	assert.Empty(t, NewChunker(wordsCounter{}, 4, 1).Split("\n  \n"))
}

func TestWordCounter(t *testing.T) {
	assert.Equal(t, 0, WordCounter{}.Count(""))
	assert.Equal(t, 6, WordCounter{}.Count("slab volume 10 m3"))
	assert.Equal(t, 8, WordCounter{}.Count("a b c d e f"))
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}
	ctx := context.Background()
	loader := NewLoader(NewChunker(wordsCounter{}, 6, 0))

	chunks, err := loader.Load(ctx, write("schedule.txt", "Door D1 oak 900 mm\nDoor D2 steel 1000 mm"))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "schedule-1", chunks[0].ID)
	assert.Equal(t, "Door D1 oak 900 mm", chunks[0].Content)

	chunks, err = loader.Load(ctx, write("level1.html", "<html><body><p>Room R1 area 20 m2</p></body></html>"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "level1", chunks[0].ID)
	assert.Contains(t, chunks[0].Content, "Room R1 area 20 m2")

	assert.True(t, loader.Supports("plan.PDF"))
	assert.False(t, loader.Supports("model.ifc"))

	_, err = loader.Load(ctx, write("model.ifc", "ISO-10303-21;"))
	assert.Error(t, err)

	_, err = loader.Load(ctx, write("broken.pdf", "not a pdf"))
	assert.Error(t, err)
}

func TestLoaderWithoutChunker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("  Wall W1 thickness 200 mm\n\nWall W2 thickness 250 mm  "), 0644))

	chunks, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "notes", chunks[0].ID)
	assert.Equal(t, "Wall W1 thickness 200 mm\n\nWall W2 thickness 250 mm", chunks[0].Content)
}
