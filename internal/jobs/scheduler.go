// Package jobs runs the periodic maintenance tasks: purging past
// appointments, mailing the weekly digest and sweeping expired admin
// sessions with their workspaces.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/obispado/citas-backend/internal/services"
)

// Purger deletes appointments dated before today.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Digester mails the upcoming-appointments summary.
type Digester interface {
	Send(ctx context.Context) (*services.DigestResult, error)
}

// Sweeper drops expired sessions and idle workspaces and reports how many
// were removed.
type Sweeper interface {
	Sweep() int
}

var (
	_ Purger   = (*services.AdminService)(nil)
	_ Digester = (*services.DigestService)(nil)
	_ Sweeper  = (*services.AuthService)(nil)
)

// Options selects the schedules. Empty specs disable the matching job.
type Options struct {
	PurgeSpec  string
	DigestSpec string
	SweepSpec  string
	Location   *time.Location
	Timeout    time.Duration // per run, default 1m
}

// Scheduler wraps a cron runner with the three jobs.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	purge  Purger
	digest Digester
	sweep  Sweeper

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New registers the jobs whose spec and target are both set. An invalid
// spec is returned as an error.
func New(opts Options, p Purger, d Digester, s Sweeper) (*Scheduler, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	sc := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{}))),
		timeout: timeout,
		purge:   p,
		digest:  d,
		sweep:   s,
		entries: make(map[string]cron.EntryID),
	}

	if p != nil && opts.PurgeSpec != "" {
		if err := sc.add("purge", opts.PurgeSpec, sc.RunPurge); err != nil {
			return nil, err
		}
	}
	if d != nil && opts.DigestSpec != "" {
		if err := sc.add("digest", opts.DigestSpec, sc.RunDigest); err != nil {
			return nil, err
		}
	}
	if s != nil && opts.SweepSpec != "" {
		if err := sc.add("sweep", opts.SweepSpec, func(context.Context) { sc.RunSweep() }); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func (s *Scheduler) add(name, spec string, run func(context.Context)) error {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		run(ctx)
	})
	if err != nil {
		return fmt.Errorf("jobs: %s schedule %q: %w", name, spec, err)
	}
	s.mu.Lock()
	s.entries[name] = id
	s.mu.Unlock()
	return nil
}

// Jobs returns the registered job names with their next run time.
func (s *Scheduler) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.entries)).Msg("job scheduler started")
}

// Stop halts the scheduler and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Info().Msg("job scheduler stopped")
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("job scheduler stop timed out")
	}
}

// RunPurge deletes past appointments once.
func (s *Scheduler) RunPurge(ctx context.Context) {
	n, err := s.purge.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", "purge").Msg("job failed")
		return
	}
	log.Info().Str("job", "purge").Int64("deleted", n).Msg("job done")
}

// RunDigest sends the digest once. A missing recipient is logged at debug.
func (s *Scheduler) RunDigest(ctx context.Context) {
	res, err := s.digest.Send(ctx)
	switch {
	case errors.Is(err, services.ErrNotConfigured):
		log.Debug().Str("job", "digest").Msg("digest recipient not configured; skipped")
		return
	case err != nil:
		log.Error().Err(err).Str("job", "digest").Msg("job failed")
		return
	}
	log.Info().Str("job", "digest").Str("to", res.To).Int("appointments", res.Appointments).Msg("job done")
}

// RunSweep removes expired sessions and idle workspaces once.
func (s *Scheduler) RunSweep() {
	if n := s.sweep.Sweep(); n > 0 {
		log.Debug().Str("job", "sweep").Int("removed", n).Msg("idle workspaces removed")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
