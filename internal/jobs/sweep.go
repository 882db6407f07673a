package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/campuspass/checkin-server-go/internal/audit"
)

// SweepJob periodically finalizes ended activities (checked_out → completed,
// registered → no_show) and prunes the session store's per-user indexes.
// Both passes are idempotent, so overlap with foreground requests is safe.
// ActivityFinalizer settles participations for ended activities, satisfied
// by *service.ParticipationService.
type ActivityFinalizer interface {
	FinalizeEnded(ctx context.Context, now time.Time) (completed, noShow int64, err error)
}

// SessionSweeper prunes stale entries from the session store's per-user
// indexes, satisfied by *session.Store.
type SessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type SweepJob struct {
	state    ActivityFinalizer
	sessions SessionSweeper
	interval time.Duration
	done     chan struct{}
}

func NewSweepJob(state ActivityFinalizer, sessions SessionSweeper, interval time.Duration) *SweepJob {
	return &SweepJob{
		state:    state,
		sessions: sessions,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("sweep job stopped")
}

func (j *SweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	completed, noShow, err := j.state.FinalizeEnded(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("failed to finalize ended activities")
	} else if completed > 0 || noShow > 0 {
		log.Info().
			Int64("completed", completed).
			Int64("noShow", noShow).
			Msg("finalized ended activities")

		audit.Log(ctx, audit.Event{
			Type: audit.EventFinalizeSweep,
			Details: map[string]interface{}{
				"completed": completed,
				"noShow":    noShow,
			},
		})
	}

	pruned, err := j.sessions.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep session indexes")
	} else if pruned > 0 {
		log.Info().Int64("count", pruned).Msg("pruned stale session index entries")
	}
}
