package cogs

import (
	"context"
	"sync"
	"time"

	"randobot/racetime"

	"github.com/rs/zerolog"
)

// Manager tracks one Handler per active race room and retires handlers
// whose race has finished or been cancelled.
type Manager struct {
	seeds     SeedService
	delegator racetime.Delegator
	log       zerolog.Logger

	pollInterval    time.Duration
	maxStatusChecks int

	handlers      map[string]*Handler
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	done          chan bool
}

// NewManager creates a manager that builds handlers with the given
// dependencies and starts the retirement sweep.
func NewManager(seeds SeedService, delegator racetime.Delegator, pollInterval time.Duration, maxStatusChecks int, logger zerolog.Logger) *Manager {
	m := &Manager{
		seeds:           seeds,
		delegator:       delegator,
		log:             logger,
		pollInterval:    pollInterval,
		maxStatusChecks: maxStatusChecks,
		handlers:        make(map[string]*Handler),
		done:            make(chan bool),
	}

	m.cleanupTicker = time.NewTicker(90 * time.Second)
	go m.cleanupRoutine()
	return m
}

// Close stops the retirement sweep.
func (m *Manager) Close() {
	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
		m.done <- true
	}
}

// Handler returns the handler for a race room, creating one on first
// observation.
func (m *Manager) Handler(raceName string, room racetime.Room) *Handler {
	m.mu.RLock()
	handler, exists := m.handlers[raceName]
	m.mu.RUnlock()
	if exists {
		return handler
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if handler, exists = m.handlers[raceName]; exists {
		return handler
	}
	handler = NewHandler(room, m.seeds, m.delegator, m.pollInterval, m.maxStatusChecks, m.log.With().Str("race", raceName).Logger())
	m.handlers[raceName] = handler
	return handler
}

// Remove drops a race's handler after releasing its session.
func (m *Manager) Remove(ctx context.Context, raceName string) {
	m.mu.Lock()
	handler, exists := m.handlers[raceName]
	delete(m.handlers, raceName)
	m.mu.Unlock()

	if exists {
		handler.End(ctx)
	}
}

// Size returns the number of tracked race rooms.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

func (m *Manager) cleanupRoutine() {
	for {
		select {
		case <-m.cleanupTicker.C:
			m.cleanupEndedRaces()
		case <-m.done:
			return
		}
	}
}

// cleanupEndedRaces retires handlers whose race reached a terminal state.
func (m *Manager) cleanupEndedRaces() {
	m.mu.RLock()
	ended := make([]string, 0)
	for raceName, handler := range m.handlers {
		if handler.Ended() {
			ended = append(ended, raceName)
		}
	}
	m.mu.RUnlock()

	for _, raceName := range ended {
		m.Remove(context.Background(), raceName)
	}
	if len(ended) > 0 {
		m.log.Info().Int("count", len(ended)).Int("active", m.Size()).Msg("Retired ended race sessions")
	}
}
