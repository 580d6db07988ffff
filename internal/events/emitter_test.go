package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	log, _ := logger.NewTestLogger()
	ctx := context.Background()

	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		event, err := NewEvent(TypeMatchFound, MatchFound{})
		require.NoError(t, err)
		assert.NoError(t, emitter.EmitEvent(ctx, event))
	})

	t.Run("nil event", func(t *testing.T) {
		assert.Error(t, NewInMemoryEventEmitter(log).EmitEvent(ctx, nil))
	})

	t.Run("routes by type", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)

		matches := &MockEventHandler{}
		ranks := &MockEventHandler{}
		everything := &MockEventHandler{}
		emitter.Subscribe(matches, TypeMatchFound)
		emitter.Subscribe(ranks, TypeRankChanged)
		emitter.RegisterHandler(everything)

		event, err := NewEvent(TypeMatchFound, MatchFound{Recipients: []int64{1}})
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(ctx, event))

		assert.Equal(t, 1, matches.HandledCount)
		assert.Equal(t, event, matches.LastEvent)
		assert.Zero(t, ranks.HandledCount)
		assert.Equal(t, 1, everything.HandledCount)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)

		errFirst := errors.New("first failed")
		errSecond := errors.New("second failed")
		first := &MockEventHandler{HandlerError: errFirst}
		second := &MockEventHandler{HandlerError: errSecond}
		ok := &MockEventHandler{}
		emitter.Subscribe(first, TypeRankChanged)
		emitter.Subscribe(second, TypeRankChanged)
		emitter.RegisterHandler(ok)

		event, err := NewEvent(TypeRankChanged, RankChanged{})
		require.NoError(t, err)

		err = emitter.EmitEvent(ctx, event)
		assert.ErrorIs(t, err, errFirst)
		assert.ErrorIs(t, err, errSecond)
		assert.Equal(t, 1, first.HandledCount)
		assert.Equal(t, 1, second.HandledCount)
		assert.Equal(t, 1, ok.HandledCount)
	})
}

func TestLoggingHandler(t *testing.T) {
	log, buf := logger.NewTestLogger()
	h := NewLoggingHandler(log)
	ctx := context.Background()

	ignored, err := NewEvent("pvp.unknown", struct{}{})
	require.NoError(t, err)
	require.NoError(t, h.HandleEvent(ctx, ignored))
	assert.Empty(t, buf.Entries())

	change := domain.RankChange{
		PlayerID:  42,
		OldRating: 1190,
		NewRating: 1210,
		OldTier:   domain.TierBronze,
		NewTier:   domain.TierSilver,
		Type:      domain.RankChangePromote,
	}
	event, err := NewEvent(TypeRankChanged, RankChanged{Change: change, BattleID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, h.HandleEvent(ctx, event))

	entries := buf.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "player rank changed", entries[0]["msg"])
	assert.Equal(t, "silver", entries[0]["new_tier"])
	assert.Equal(t, "promote", entries[0]["type"])

	match, err := NewEvent(TypeMatchFound, MatchFound{Match: domain.Match{ID: uuid.New()}, Recipients: []int64{7}})
	require.NoError(t, err)
	require.NoError(t, h.HandleEvent(ctx, match))

	entries = buf.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "match delivered", entries[1]["msg"])
}

func TestLoggingHandler_BadPayload(t *testing.T) {
	h := NewLoggingHandler(nil)
	event := &Event{Type: TypeRankChanged, Payload: []byte("{")}
	assert.Error(t, h.HandleEvent(context.Background(), event))
}
