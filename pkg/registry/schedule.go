package registry

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes the next reload time after t. It is satisfied by
// cron.Schedule.
type Schedule interface {
	Next(t time.Time) time.Time
}

type constantSchedule struct {
	interval time.Duration
}

func (s constantSchedule) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

// Every returns a schedule that reloads a fixed interval after the previous
// load attempt.
func Every(d time.Duration) Schedule {
	return constantSchedule{interval: d}
}

// ParseSchedule parses a standard five-field cron expression or a descriptor
// such as "@hourly" or "@every 30s".
func ParseSchedule(expr string) (Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return sched, nil
}
