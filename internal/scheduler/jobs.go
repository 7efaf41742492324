package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SyncRequester triggers calendar syncs.
type SyncRequester interface {
	RequestSync(ctx context.Context, force bool) error
}

// StalenessCheckJob requests a non-forced sync. The sync service itself
// decides whether the calendar is stale enough to actually hit the network.
type StalenessCheckJob struct {
	syncer  SyncRequester
	timeout time.Duration
	log     zerolog.Logger
}

// NewStalenessCheckJob creates a new staleness check job
func NewStalenessCheckJob(syncer SyncRequester, timeout time.Duration, log zerolog.Logger) *StalenessCheckJob {
	return &StalenessCheckJob{
		syncer:  syncer,
		timeout: timeout,
		log:     log.With().Str("job", "staleness_check").Logger(),
	}
}

// Name returns the job name
func (j *StalenessCheckJob) Name() string {
	return "staleness_check"
}

// Run executes the staleness check
func (j *StalenessCheckJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.syncer.RequestSync(ctx, false)
}

// LedgerPruner removes expired notification records.
type LedgerPruner interface {
	Prune(cutoff time.Time) (int64, error)
}

// LedgerPruneJob drops notification ledger entries for events that ended
// more than the grace period ago, so the ledger never grows unbounded.
type LedgerPruneJob struct {
	ledger LedgerPruner
	grace  time.Duration
	log    zerolog.Logger
}

// NewLedgerPruneJob creates a new ledger prune job
func NewLedgerPruneJob(ledger LedgerPruner, grace time.Duration, log zerolog.Logger) *LedgerPruneJob {
	return &LedgerPruneJob{
		ledger: ledger,
		grace:  grace,
		log:    log.With().Str("job", "ledger_prune").Logger(),
	}
}

// Name returns the job name
func (j *LedgerPruneJob) Name() string {
	return "ledger_prune"
}

// Run executes the prune
func (j *LedgerPruneJob) Run() error {
	pruned, err := j.ledger.Prune(time.Now().Add(-j.grace))
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.log.Info().Int64("pruned", pruned).Msg("Expired ledger entries removed")
	}
	return nil
}
