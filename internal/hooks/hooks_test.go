package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/soyeahso/yui/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventTopicChanged, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventTopicChanged, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventTopicChanged, nil)
	assert.True(t, called)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventMessageReceived, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventMessageReceived, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var gotData map[string]any
	m.On(EventMessageReceived, "test", func(_ context.Context, p Payload) error {
		gotData = p.Data
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, map[string]any{
		"contact": "some_user",
		"content": "hi",
	})

	assert.Equal(t, "some_user", gotData["contact"])
	assert.Equal(t, "hi", gotData["content"])
}

func TestManager_Emit_HandlerError(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventTopicChanged, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventTopicChanged, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	// Should not panic; second handler should still run
	m.Emit(context.Background(), EventTopicChanged, nil)
	assert.True(t, secondCalled)
}

func TestManager_Emit_NoHandlers(t *testing.T) {
	m := testManager()
	// Should not panic
	m.Emit(context.Background(), EventTurnCompleted, nil)
}

func TestManager_Off(t *testing.T) {
	m := testManager()

	var callCount int
	m.On(EventTopicChanged, "removable", func(_ context.Context, _ Payload) error {
		callCount++
		return nil
	})

	m.Emit(context.Background(), EventTopicChanged, nil)
	assert.Equal(t, 1, callCount)

	m.Off(EventTopicChanged, "removable")
	m.Emit(context.Background(), EventTopicChanged, nil)
	assert.Equal(t, 1, callCount) // should not have been called again
}

func TestManager_Off_KeepsOthers(t *testing.T) {
	m := testManager()

	var keepCalled int
	m.On(EventTopicChanged, "remove-me", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventTopicChanged, "keep-me", func(_ context.Context, _ Payload) error {
		keepCalled++
		return nil
	})

	m.Off(EventTopicChanged, "remove-me")
	m.Emit(context.Background(), EventTopicChanged, nil)
	assert.Equal(t, 1, keepCalled)
}

func TestManager_Count(t *testing.T) {
	m := testManager()

	assert.Equal(t, 0, m.Count(EventTopicChanged))

	m.On(EventTopicChanged, "h1", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 1, m.Count(EventTopicChanged))

	m.On(EventTopicChanged, "h2", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 2, m.Count(EventTopicChanged))
}

func TestManager_Events(t *testing.T) {
	m := testManager()

	m.On(EventTopicChanged, "h1", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventMessageReceived, "h2", func(_ context.Context, _ Payload) error { return nil })

	assert.Equal(t, []string{EventMessageReceived, EventTopicChanged}, m.Events())
}

func TestManager_NilEmitIsNoop(t *testing.T) {
	var m *Manager
	m.Emit(context.Background(), EventTurnCompleted, nil)
}

func TestAllEvents_NotEmpty(t *testing.T) {
	require.NotEmpty(t, AllEvents)
	assert.Contains(t, AllEvents, EventTopicChanged)
	assert.Contains(t, AllEvents, EventMessageReceived)
	assert.Contains(t, AllEvents, EventFactRemembered)
}
