package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "squint.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	sess := Session{
		Hash: "deadbeef", RunID: "run-1", Source: "workspace X { }",
		ControlText: "wait(1)\n", LogJSON: `{"ok":true}`, CreatedSeq: 1,
	}
	require.NoError(t, st.Save(ctx, sess))

	got, err := st.Get(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, sess.RunID, got.RunID)
	assert.Equal(t, sess.ControlText, got.ControlText)
}

func TestSaveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "squint.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	sess := Session{Hash: "h1", RunID: "run-1", Source: "s", ControlText: "c", LogJSON: "{}", CreatedSeq: 1}
	require.NoError(t, st.Save(ctx, sess))
	sess.RunID = "run-2"
	require.NoError(t, st.Save(ctx, sess))

	got, err := st.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID, "second save with the same hash must be a no-op")
}

func TestGetMissingReturnsError(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "squint.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSaveAssignsRunIDWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "squint.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	sess := Session{Hash: "h2", Source: "s", ControlText: "c", LogJSON: "{}", CreatedSeq: 1}
	require.NoError(t, st.Save(ctx, sess))

	got, err := st.Get(ctx, "h2")
	require.NoError(t, err)
	assert.NotEmpty(t, got.RunID)
}
