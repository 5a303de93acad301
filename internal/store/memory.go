// Package store — in-memory Store implementation with file-based snapshot
// persistence so usage counters and history survive restarts. Used for
// local deployments and tests.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
	"github.com/rs/zerolog/log"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Usage   map[string]*models.UsageRecord `json:"usage"`   // key: user:day
	History map[string][]*models.HistoryEntry `json:"history"` // key: user → newest first
}

// MemoryStore implements Store with mutex-guarded maps.
type MemoryStore struct {
	mu      sync.RWMutex
	usage   map[string]*models.UsageRecord    // key: user:day
	history map[string][]*models.HistoryEntry // key: user → newest first

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals background goroutines to stop
	closeOnce    sync.Once

	// History entries older than this are evicted automatically.
	historyTTL time.Duration
}

// NewMemoryStore creates a new in-memory store. If dataDir is non-empty the
// store persists to <dataDir>/data.json; otherwise it tries ~/.ccg.
// historyTTL <= 0 disables history eviction.
func NewMemoryStore(dataDir string, historyTTL time.Duration) *MemoryStore {
	m := &MemoryStore{
		usage:      make(map[string]*models.UsageRecord),
		history:    make(map[string][]*models.HistoryEntry),
		saveCh:     make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
		historyTTL: historyTTL,
	}

	if dataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, ".ccg")
		}
	}
	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}
	if m.historyTTL > 0 {
		go m.evictionLoop()
	}

	log.Info().
		Str("snapshot", m.snapshotPath).
		Str("history_ttl", historyTTL.String()).
		Msg("Memory store configured")
	return m
}

func usageKey(userID, day string) string { return userID + ":" + day }

// ── UsageStore ───────────────────────────────────────────────

// IncrementUsage upserts the day's counter and returns the new count.
func (m *MemoryStore) IncrementUsage(ctx context.Context, userID, day string) (int, error) {
	m.mu.Lock()
	rec, ok := m.usage[usageKey(userID, day)]
	if !ok {
		rec = &models.UsageRecord{UserID: userID, Day: day}
		m.usage[usageKey(userID, day)] = rec
	}
	rec.Count++
	rec.UpdatedAt = time.Now().UTC()
	count := rec.Count
	m.mu.Unlock()

	m.requestSave()
	return count, nil
}

func (m *MemoryStore) GetUsage(ctx context.Context, userID, day string) (*models.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.usage[usageKey(userID, day)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ── HistoryStore ─────────────────────────────────────────────

func (m *MemoryStore) AddHistory(ctx context.Context, entry *models.HistoryEntry) error {
	cp := *entry
	m.mu.Lock()
	m.history[entry.UserID] = append([]*models.HistoryEntry{&cp}, m.history[entry.UserID]...)
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryStore) ListHistory(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.history[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out, nil
}

func (m *MemoryStore) ClearHistory(ctx context.Context, userID string) error {
	m.mu.Lock()
	delete(m.history, userID)
	m.mu.Unlock()

	m.requestSave()
	return nil
}

// ── Store Lifecycle ──────────────────────────────────────────

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.doneCh)
		if m.snapshotPath != "" {
			m.saveSnapshot()
		}
	})
	return nil
}

// ── Persistence ──────────────────────────────────────────────

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests.
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

// evictionLoop periodically removes history entries older than historyTTL.
func (m *MemoryStore) evictionLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.doneCh:
			return
		case <-ticker.C:
			m.evictExpiredHistory()
		}
	}
}

func (m *MemoryStore) evictExpiredHistory() {
	cutoff := time.Now().Add(-m.historyTTL)

	m.mu.Lock()
	var evicted int
	for user, entries := range m.history {
		kept := entries[:0]
		for _, e := range entries {
			if e.CreatedAt.Before(cutoff) {
				evicted++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(m.history, user)
		} else {
			m.history[user] = kept
		}
	}
	m.mu.Unlock()

	if evicted > 0 {
		log.Info().Int("evicted", evicted).Str("ttl", m.historyTTL.String()).Msg("Evicted expired history entries")
		m.requestSave()
	}
}

// saveSnapshot persists all data to disk as JSON.
func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Usage:   m.usage,
		History: m.history,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Corrupt snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	if snap.Usage != nil {
		m.usage = snap.Usage
	}
	if snap.History != nil {
		m.history = snap.History
	}
	m.mu.Unlock()

	log.Info().Str("path", m.snapshotPath).Msg("Snapshot loaded")
}
