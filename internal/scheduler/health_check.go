package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/database"
)

// HealthCheckJob runs SQLite integrity and WAL checkpoint checks so database
// corruption is noticed long before it surfaces as a failed write.
type HealthCheckJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHealthCheckJob creates a new health check job
func NewHealthCheckJob(db *database.DB, log zerolog.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		db:  db,
		log: log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run executes the health check
func (j *HealthCheckJob) Run() error {
	start := time.Now()

	var result string
	if err := j.db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}

	var mode, busy, walFrames, checkpointed int
	if err := j.db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&mode, &busy, &walFrames, &checkpointed); err != nil {
		j.log.Warn().Err(err).Msg("Failed to check WAL checkpoint")
	} else if walFrames > 1000 {
		j.log.Warn().
			Int("wal_frames", walFrames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, checkpoint may be needed")
	}

	j.log.Debug().Dur("duration", time.Since(start)).Msg("Health check completed")
	return nil
}
