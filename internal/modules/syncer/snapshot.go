package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/newsguard/internal/domain"
)

// Snapshot is the last-known-good market state persisted across restarts.
type Snapshot struct {
	Events     []domain.NewsEvent     `msgpack:"events"`
	Sources    []domain.Citation      `msgpack:"sources"`
	Sentiments []domain.SentimentData `msgpack:"sentiments"`
	RiskScores map[string]float64     `msgpack:"riskScores"`
	TradeOfDay *domain.TradeSetup     `msgpack:"tradeOfDay"`
	LastSync   time.Time              `msgpack:"lastSync"`
}

// SnapshotCache persists snapshots to a single msgpack file.
type SnapshotCache struct {
	path string
}

// NewSnapshotCache creates a cache writing to the given path.
func NewSnapshotCache(path string) *SnapshotCache {
	return &SnapshotCache{path: path}
}

// Save writes the snapshot atomically (temp file plus rename), so a crash
// mid-write never corrupts the previous snapshot.
func (c *SnapshotCache) Save(snap Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads the last persisted snapshot; (nil, nil) when none exists yet.
func (c *SnapshotCache) Load() (*Snapshot, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
