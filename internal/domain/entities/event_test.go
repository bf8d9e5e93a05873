package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventRunning(t *testing.T) {
	start := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	finish := start.Add(48 * time.Hour)
	ev := &Event{StartAt: start, FinishAt: finish}

	require.False(t, ev.Running(start.Add(-time.Second)))
	require.True(t, ev.Running(start))
	require.True(t, ev.Running(start.Add(time.Hour)))
	require.True(t, ev.Running(finish))
	require.False(t, ev.Running(finish.Add(time.Second)))

	// Custom events without a time window never count as running.
	require.False(t, (&Event{}).Running(start))
}

func TestEventHasParticipant(t *testing.T) {
	ev := &Event{Participants: []Participant{
		{EventID: 1, UserID: "user-1"},
		{EventID: 1, UserID: "user-2"},
	}}

	require.True(t, ev.HasParticipant("user-2"))
	require.False(t, ev.HasParticipant("user-3"))
	require.False(t, (&Event{}).HasParticipant("user-1"))
}
