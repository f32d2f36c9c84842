package cogs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(newFakeSeeds(), nil, time.Millisecond, 3, zerolog.Nop())
	t.Cleanup(m.Close)
	return m
}

func TestManagerReusesHandlerPerRace(t *testing.T) {
	m := newTestManager(t)
	room := &fakeRoom{}

	first := m.Handler("oot/test-race", room)
	second := m.Handler("oot/test-race", room)
	other := m.Handler("oot/other-race", &fakeRoom{})

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, m.Size())
}

func TestManagerRemoveReleasesSession(t *testing.T) {
	m := newTestManager(t)
	room := &fakeRoom{}

	h := m.Handler("oot/test-race", room)
	h.setSession(Session{PinnedMsg: "pinned-1"})

	m.Remove(context.Background(), "oot/test-race")

	assert.Zero(t, m.Size())
	room.mu.Lock()
	defer room.mu.Unlock()
	require.Len(t, room.unpinned, 1)
	assert.Equal(t, "pinned-1", room.unpinned[0])
}

func TestManagerCleanupRetiresEndedRaces(t *testing.T) {
	m := newTestManager(t)

	active := m.Handler("oot/active", &fakeRoom{})
	active.OnRaceData(context.Background(), raceWithStatus("in_progress"))
	finished := m.Handler("oot/finished", &fakeRoom{})
	finished.OnRaceData(context.Background(), raceWithStatus("finished"))
	cancelled := m.Handler("oot/cancelled", &fakeRoom{})
	cancelled.OnRaceData(context.Background(), raceWithStatus("cancelled"))

	m.cleanupEndedRaces()

	assert.Equal(t, 1, m.Size())
	assert.Same(t, active, m.Handler("oot/active", &fakeRoom{}))
}
