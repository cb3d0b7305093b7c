package watcher

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Poller fires the poll function once immediately, then at the top of every
// hour. Manual triggers run a poll right away without touching the hourly
// schedule. Triggers arriving while a poll is in flight are dropped, so a
// scheduled fire coinciding with a manual one cannot emit notifications
// twice.
type Poller struct {
	run     func(context.Context)
	log     *zap.Logger
	trigger chan struct{}
	cron    *cron.Cron
	entry   cron.EntryID
	done    chan struct{}
}

const topOfHourSpec = "0 * * * *"

func NewPoller(run func(context.Context), log *zap.Logger) *Poller {
	return &Poller{
		run:     run,
		log:     log,
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the schedule and returns immediately. Cancelling ctx stops
// both the cron schedule and the poll loop; a configuration change means
// cancel, rebuild, Start again.
func (p *Poller) Start(ctx context.Context) {
	p.cron = cron.New()
	entry, err := p.cron.AddFunc(topOfHourSpec, p.Trigger)
	if err != nil {
		p.log.Error("failed to register hourly schedule", zap.Error(err))
	}
	p.entry = entry
	p.cron.Start()

	go func() {
		defer close(p.done)
		defer p.cron.Stop()

		// first poll fires right away
		p.run(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.trigger:
				p.run(ctx)
			}
		}
	}()
}

// Trigger requests an immediate poll. If one is already in flight the
// request is dropped.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
		p.log.Warn("poll already in flight, trigger dropped")
	}
}

// Wait blocks until the poll loop has exited after ctx cancellation.
func (p *Poller) Wait() { <-p.done }

// NextFire returns the wall-clock instant of the next scheduled poll.
func (p *Poller) NextFire() time.Time {
	if p.cron != nil {
		if e := p.cron.Entry(p.entry); !e.Next.IsZero() {
			return e.Next
		}
	}
	return NextTopOfHour(time.Now())
}

// Remaining is the countdown value, recomputed from the wall clock on every
// call so it cannot drift.
func (p *Poller) Remaining() time.Duration {
	d := time.Until(p.NextFire())
	if d < 0 {
		return 0
	}
	return d
}

// NextTopOfHour returns the next instant with zero minutes and seconds.
func NextTopOfHour(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).Add(time.Hour)
}
