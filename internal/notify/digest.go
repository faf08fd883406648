package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/papertoplan/ptp/internal/api"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser accepts standard 5-field expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// StatsFetcher is the subset of *api.Client the digest needs.
type StatsFetcher interface {
	Stats(ctx context.Context) (*api.Stats, error)
}

// Digest periodically sends a statistics summary.
type Digest struct {
	schedule cron.Schedule
	stats    StatsFetcher
	out      Adapter
	log      *zap.Logger
	now      func() time.Time
}

// NewDigest parses expr and returns a Digest sending to out.
func NewDigest(expr string, stats StatsFetcher, out Adapter, log *zap.Logger) (*Digest, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("notify: digest schedule %q: %w", expr, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Digest{schedule: sched, stats: stats, out: out, log: log, now: time.Now}, nil
}

// Next returns the next fire time after t.
func (d *Digest) Next(t time.Time) time.Time {
	return d.schedule.Next(t)
}

// Run fires the digest on schedule until ctx is cancelled. Failures are
// logged and the next slot is awaited.
func (d *Digest) Run(ctx context.Context) {
	for {
		wait := d.Next(d.now()).Sub(d.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := d.Fire(ctx); err != nil {
				d.log.Warn("digest failed", zap.Error(err))
			}
		}
	}
}

// Fire fetches the current stats and sends one summary.
func (d *Digest) Fire(ctx context.Context) error {
	stats, err := d.stats.Stats(ctx)
	if err != nil {
		return fmt.Errorf("notify: digest: fetch stats: %w", err)
	}
	if err := d.out.Send(ctx, FormatStats(stats)); err != nil {
		return fmt.Errorf("notify: digest: %w", err)
	}
	return nil
}

// FormatStats renders aggregate counts as a digest message.
func FormatStats(s *api.Stats) Message {
	total := s.Progress.Completed + s.Progress.InProgress
	text := fmt.Sprintf("Paper-to-Plan digest: %d items, %d completed, %d in progress",
		total, s.Progress.Completed, s.Progress.InProgress)

	fields := []Field{
		{Name: "Completed", Value: fmt.Sprintf("%d", s.Progress.Completed), Short: true},
		{Name: "In progress", Value: fmt.Sprintf("%d", s.Progress.InProgress), Short: true},
		{Name: "Short term", Value: fmt.Sprintf("%d", s.ImplementationTime.ShortTerm), Short: true},
		{Name: "Medium term", Value: fmt.Sprintf("%d", s.ImplementationTime.MediumTerm), Short: true},
		{Name: "Long term", Value: fmt.Sprintf("%d", s.ImplementationTime.LongTerm), Short: true},
	}
	if n := len(s.FeasibilityScores); n > 0 {
		sum := 0
		for _, v := range s.FeasibilityScores {
			sum += v
		}
		fields = append(fields, Field{Name: "Avg feasibility", Value: fmt.Sprintf("%d", sum/n), Short: true})
	}
	return Message{Text: text, Title: "Daily digest", Body: text, Color: ColorInfo, Fields: fields}
}
