package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to the server named by PLANNER_TEST_REDIS.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("PLANNER_TEST_REDIS")
	if addr == "" {
		t.Skip("PLANNER_TEST_REDIS not set")
	}
	s, err := New(context.Background(), Config{Addr: addr, Prefix: "planner-test-" + uuid.NewString() + ":"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "planner-notes")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "planner-notes", []byte(`[]`)))
	v, ok, err := s.Get(ctx, "planner-notes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(v))

	require.NoError(t, s.Remove(ctx, "planner-notes"))
	_, ok, err = s.Get(ctx, "planner-notes")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyPrefix(t *testing.T) {
	s := &Store{prefix: "app:"}
	assert.Equal(t, "app:planner-goals", s.key("planner-goals"))
}
