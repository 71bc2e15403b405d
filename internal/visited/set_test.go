package visited

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/lorekeeper/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// countingBackend is an in-memory Backend that records every save.
type countingBackend struct {
	keys    []string
	saves   int
	loadErr error
	saveErr error
}

func (b *countingBackend) Name() string { return "memory" }

func (b *countingBackend) Load(context.Context) ([]string, error) { return b.keys, b.loadErr }

func (b *countingBackend) Save(_ context.Context, keys []string) error {
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.keys = append([]string(nil), keys...)
	return nil
}

func (b *countingBackend) Close(context.Context) error { return nil }

func TestSetContainsAfterMark(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, &countingBackend{}, 10, testLogger)

	loc := types.Locator("https://www.hp-lexicon.org/character/potter-family/harry-potter/")
	assert.False(t, s.Contains(loc))

	assert.True(t, s.MarkVisited(ctx, loc))
	assert.True(t, s.Contains(loc))
	// canonical form matches without trailing slash or with a fragment
	assert.True(t, s.Contains("https://WWW.hp-lexicon.org/character/potter-family/harry-potter#bio"))
}

func TestSetMarkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, &countingBackend{}, 10, testLogger)

	loc := types.Locator("https://example.com/a/x/")
	assert.True(t, s.MarkVisited(ctx, loc))
	assert.False(t, s.MarkVisited(ctx, loc))
	assert.Equal(t, 1, s.Len())
}

func TestSetFlushesEveryK(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{}
	s := Open(ctx, b, 10, testLogger)

	for i := 0; i < 25; i++ {
		s.MarkVisited(ctx, types.Locator("https://example.com/p/"+string(rune('a'+i))))
	}
	assert.Equal(t, 2, b.saves, "flush after the 10th and 20th insertion")
	assert.Len(t, b.keys, 20)

	// duplicate inserts do not count toward the threshold
	for i := 0; i < 10; i++ {
		s.MarkVisited(ctx, "https://example.com/p/a")
	}
	assert.Equal(t, 2, b.saves)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 3, b.saves)
	assert.Len(t, b.keys, 25)
}

func TestSetLoadFailureStartsEmpty(t *testing.T) {
	b := &countingBackend{keys: []string{"https://example.com/x"}, loadErr: errors.New("boom")}
	s := Open(context.Background(), b, 10, testLogger)
	assert.Equal(t, 0, s.Len())
}

func TestSetReset(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{keys: []string{"https://example.com/x"}}
	s := Open(ctx, b, 10, testLogger)
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, b.keys)
}

func TestFileBackendRoundTripAcrossRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "visited.json")

	s := Open(ctx, NewFileBackend(path), 10, testLogger)
	s.MarkVisited(ctx, "https://example.com/a/x/")
	s.MarkVisited(ctx, "https://example.com/b/x/")
	require.NoError(t, s.Close(ctx))

	reopened := Open(ctx, NewFileBackend(path), 10, testLogger)
	assert.Equal(t, 2, reopened.Len())
	assert.True(t, reopened.Contains("https://example.com/a/x"))
	assert.True(t, reopened.Contains("https://example.com/b/x"))
}

func TestFileBackendMissingFile(t *testing.T) {
	keys, err := NewFileBackend(filepath.Join(t.TempDir(), "none.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visited.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileBackend(path).Load(context.Background())
	assert.Error(t, err)

	s := Open(context.Background(), NewFileBackend(path), 10, testLogger)
	assert.Equal(t, 0, s.Len())
}

func TestFileBackendOverwrites(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(filepath.Join(t.TempDir(), "visited.json"))

	require.NoError(t, b.Save(ctx, []string{"a", "b", "c"}))
	require.NoError(t, b.Save(ctx, []string{"d"}))

	keys, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, keys)
}

func TestSetCloseWithoutChangesDoesNotSave(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{keys: []string{"https://example.com/x"}}
	s := Open(ctx, b, 10, testLogger)

	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, b.saves)
}

func TestSetLoadFailureNeverOverwritesState(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{keys: []string{"https://example.com/x"}, loadErr: errors.New("server selection timeout")}
	s := Open(ctx, b, 10, testLogger)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, b.saves)
	assert.Equal(t, []string{"https://example.com/x"}, b.keys)
}

func TestSetCloseKeepsCorruptStateFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "visited.json")
	corrupt := []byte(`["https://www.hp-lexicon.org/character/harry", "https://www.hp-lexicon.org/character/ron"`)
	require.NoError(t, os.WriteFile(path, corrupt, 0o644))

	s := Open(ctx, NewFileBackend(path), 10, testLogger)
	assert.Equal(t, 0, s.Len())
	require.NoError(t, s.Close(ctx))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(corrupt), string(after))
}

func TestSetReleaseDoesNotFlush(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{}
	s := Open(ctx, b, 10, testLogger)
	s.MarkVisited(ctx, "https://example.com/a/x/")

	require.NoError(t, s.Release(ctx))
	assert.Equal(t, 0, b.saves)
}

func TestSetFailedFlushRetriedAfterAnotherThreshold(t *testing.T) {
	ctx := context.Background()
	b := &countingBackend{saveErr: errors.New("disk full")}
	s := Open(ctx, b, 2, testLogger)

	s.MarkVisited(ctx, "https://example.com/p/a")
	s.MarkVisited(ctx, "https://example.com/p/b")
	assert.Equal(t, 1, b.saves)

	s.MarkVisited(ctx, "https://example.com/p/c")
	assert.Equal(t, 1, b.saves, "no retry before the next threshold")

	b.saveErr = nil
	s.MarkVisited(ctx, "https://example.com/p/d")
	assert.Equal(t, 2, b.saves)
	assert.Len(t, b.keys, 4)
}
