package watcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNextTopOfHour(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid hour",
			now:  time.Date(2025, 9, 1, 14, 23, 45, 0, time.UTC),
			want: time.Date(2025, 9, 1, 15, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on the hour rolls to the next one",
			now:  time.Date(2025, 9, 1, 14, 0, 0, 0, time.UTC),
			want: time.Date(2025, 9, 1, 15, 0, 0, 0, time.UTC),
		},
		{
			name: "day boundary",
			now:  time.Date(2025, 9, 1, 23, 59, 59, 0, time.UTC),
			want: time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextTopOfHour(tt.now); !got.Equal(tt.want) {
				t.Fatalf("NextTopOfHour(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestPollerRunsImmediatelyOnStart(t *testing.T) {
	var polls atomic.Int32
	p := NewPoller(func(context.Context) { polls.Add(1) }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	deadline := time.After(2 * time.Second)
	for polls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no poll within 2s of Start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	p.Wait()
}

func TestPollerDropsTriggersWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var polls atomic.Int32

	p := NewPoller(func(context.Context) {
		if polls.Add(1) == 1 {
			close(started)
			<-release
		}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	<-started

	// the first poll is blocked; every trigger now must be dropped
	for i := 0; i < 5; i++ {
		p.Trigger()
	}
	close(release)

	// give a possible queued run a chance to execute, then stop
	time.Sleep(50 * time.Millisecond)
	cancel()
	p.Wait()

	if got := polls.Load(); got != 1 {
		t.Fatalf("polls = %d, want 1 (triggers during a running poll are dropped)", got)
	}
}

func TestPollerTriggerRunsAnExtraPoll(t *testing.T) {
	firstDone := make(chan struct{})
	var polls atomic.Int32

	p := NewPoller(func(context.Context) {
		if polls.Add(1) == 1 {
			close(firstDone)
		}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	<-firstDone

	deadline := time.After(2 * time.Second)
	for polls.Load() < 2 {
		p.Trigger()
		select {
		case <-deadline:
			t.Fatal("manual trigger never ran a poll")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	p.Wait()
}

func TestPollerRegistersHourlySchedule(t *testing.T) {
	p := NewPoller(func(context.Context) {}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	e := p.cron.Entry(p.entry)
	if !e.Valid() {
		t.Fatal("hourly cron entry not registered")
	}
	now := time.Now()
	if e.Next.Before(now) || e.Next.After(now.Add(time.Hour)) {
		t.Fatalf("next fire = %v, want within the next hour", e.Next)
	}
	if e.Next.Minute() != 0 || e.Next.Second() != 0 {
		t.Fatalf("next fire = %v, want a top-of-hour instant", e.Next)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	p := NewPoller(func(context.Context) {}, zap.NewNop())
	if d := p.Remaining(); d < 0 {
		t.Fatalf("Remaining() = %v, want >= 0", d)
	}
	if d := p.Remaining(); d > time.Hour {
		t.Fatalf("Remaining() = %v, want at most an hour before Start", d)
	}
}
