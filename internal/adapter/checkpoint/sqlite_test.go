package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := domain.NewAgentState()
	state.Append(domain.NewMessage(domain.MessageUserInput, "第一条", "u1"))
	require.NoError(t, store.Save(ctx, "u1_c1", "memory_check", state))

	state.Append(domain.NewMessage(domain.MessageAgentResponse, "回复", "coordinator"))
	require.NoError(t, store.Save(ctx, "u1_c1", "coordinate", state))

	got, stage, err := store.Latest(ctx, "u1_c1")
	require.NoError(t, err)
	assert.Equal(t, "coordinate", stage)
	assert.Len(t, got.Messages, 2)
}

func TestLatestUnknownThread(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Latest(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestThreadsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := domain.NewAgentState()
	a.Append(domain.NewMessage(domain.MessageUserInput, "线程A", "u1"))
	require.NoError(t, store.Save(ctx, "u1_a", "persist", a))

	b := domain.NewAgentState()
	b.Append(domain.NewMessage(domain.MessageUserInput, "线程B", "u2"))
	require.NoError(t, store.Save(ctx, "u2_b", "persist", b))

	got, _, err := store.Latest(ctx, "u1_a")
	require.NoError(t, err)
	assert.Equal(t, "线程A", got.Messages[0].Content)
}
