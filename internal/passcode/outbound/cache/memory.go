package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

// Memory is an in-process Store used by unit tests and single-node setups.
//
// Expiry is lazy: entries are checked against the clock on read, not swept.
type Memory struct {
	clock clock.Clocker

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory(clk clock.Clocker) *Memory {
	return &Memory{
		clock:   clk,
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) Set(ctx context.Context, identifier, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[identifier] = memoryEntry{
		code:      code,
		expiresAt: m.clock.Now().Add(ttl),
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, identifier string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[identifier]
	if !ok {
		return "", goerror.ErrNotFound
	}
	if !m.clock.Now().Before(entry.expiresAt) {
		delete(m.entries, identifier)
		return "", goerror.ErrNotFound
	}
	return entry.code, nil
}

func (m *Memory) Delete(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, identifier)
	return nil
}

func (m *Memory) CompareAndDelete(ctx context.Context, identifier, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[identifier]
	if !ok {
		return false, nil
	}
	if !m.clock.Now().Before(entry.expiresAt) {
		delete(m.entries, identifier)
		return false, nil
	}
	if entry.code != code {
		return false, nil
	}

	delete(m.entries, identifier)
	return true, nil
}
