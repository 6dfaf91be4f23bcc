package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Parse validates a standard 5-field cron expression (minute hour
// day-of-month month day-of-week).
// Examples: "0 7 * * *" (daily 7am), "0 7,13,18 * * 1-5" (weekdays three times a day).
func Parse(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(spec)
}

// Run calls job on every tick of spec until ctx is cancelled. Jobs run one
// after another in the calling goroutine, so a slow job delays the next
// tick instead of overlapping it.
func Run(ctx context.Context, spec string, loc *time.Location, log *zap.Logger, job func(context.Context)) error {
	sched, err := Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule '%s': %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("job scheduled", zap.String("cron", spec), zap.String("timezone", loc.String()))

	for {
		now := time.Now().In(loc)
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Info("next run", zap.String("at", next.Format("Mon Jan 2 15:04")), zap.Duration("in", wait.Round(time.Minute)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("scheduler stopped")
			return nil
		case <-timer.C:
		}
		job(ctx)
	}
}
