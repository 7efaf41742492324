package alerts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Ledger records delivered notifications in the notification_ledger table.
// The key is eventID:leadMinutes, so changing the lead time re-arms alerts
// for events that already fired under the old lead.
type Ledger struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewLedger creates a new notification ledger
func NewLedger(db *sql.DB, log zerolog.Logger) *Ledger {
	return &Ledger{
		db:  db,
		log: log.With().Str("repository", "ledger").Logger(),
	}
}

// Key builds the dedup key for an event at a given lead time.
func Key(eventID string, leadMinutes int) string {
	return fmt.Sprintf("%s:%d", eventID, leadMinutes)
}

// Delivered reports whether a notification with this key was already sent.
func (l *Ledger) Delivered(key string) (bool, error) {
	var one int
	err := l.db.QueryRow("SELECT 1 FROM notification_ledger WHERE key = ?", key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ledger key %s: %w", key, err)
	}
	return true, nil
}

// MarkDelivered records a delivery. Recording the same key twice is not an
// error.
func (l *Ledger) MarkDelivered(key, eventID string, eventTime, deliveredAt time.Time) error {
	_, err := l.db.Exec(`
		INSERT INTO notification_ledger (key, event_id, event_time, delivered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, eventID, eventTime.UTC().Format(time.RFC3339), deliveredAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record delivery %s: %w", key, err)
	}
	return nil
}

// Prune removes ledger entries for events that ended before the cutoff.
func (l *Ledger) Prune(cutoff time.Time) (int64, error) {
	res, err := l.db.Exec(
		"DELETE FROM notification_ledger WHERE event_time < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune ledger: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		l.log.Debug().Int64("pruned", n).Msg("Pruned notification ledger")
	}
	return n, nil
}
