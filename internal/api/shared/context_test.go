package shared

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	ctx := SetTraceID(context.Background())
	id := GetTraceID(ctx)
	require.Len(t, id, 32)
	assert.NotContains(t, id, "-")

	other := GetTraceID(SetTraceID(context.Background()))
	assert.NotEqual(t, id, other)

	assert.Empty(t, GetTraceID(context.Background()))
}

func TestWithTraceID(t *testing.T) {
	t.Parallel()

	ctx := WithTraceID(context.Background(), "client-trace_01")
	assert.Equal(t, "client-trace_01", GetTraceID(ctx))

	for _, bad := range []string{"", "has space", "semi;colon", strings.Repeat("a", 65)} {
		got := GetTraceID(WithTraceID(context.Background(), bad))
		assert.Len(t, got, 32, "input %q", bad)
	}
}

func TestIdentityFromContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ok := UserID(ctx)
	assert.False(t, ok)
	_, ok = PlayerID(ctx)
	assert.False(t, ok)
	assert.Empty(t, Role(ctx))

	ctx = context.WithValue(ctx, UserIDContextKey, "u1")
	ctx = context.WithValue(ctx, PlayerIDContextKey, int64(42))
	ctx = context.WithValue(ctx, RoleContextKey, "admin")

	uid, ok := UserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", uid)

	pid, ok := PlayerID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), pid)
	assert.Equal(t, "admin", Role(ctx))

	_, ok = PlayerID(context.WithValue(ctx, PlayerIDContextKey, int64(0)))
	assert.False(t, ok)
}
