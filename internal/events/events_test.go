package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubTracksActiveTaskUntilComplete(t *testing.T) {
	h := NewHub()
	h.Broadcast("task:update", map[string]any{"task_id": "t1", "status": "running"})
	assert.Len(t, h.activeTasks, 1)

	h.Broadcast("task:update", map[string]any{"task_id": "t1", "status": "complete"})
	assert.Empty(t, h.activeTasks)
}

func TestHubIgnoresNonTaskUpdateEventsForTracking(t *testing.T) {
	h := NewHub()
	h.Broadcast("dedup:progress", map[string]any{"done": 1})
	assert.Empty(t, h.activeTasks)
}

func TestHubClientCountStartsAtZero(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.ClientCount())
}

func TestNopNotifierDoesNotPanic(t *testing.T) {
	var n Notifier = Nop{}
	assert.NotPanics(t, func() { n.Broadcast("x", nil) })
}
