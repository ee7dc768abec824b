package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"timetrack/internal/core"
	tlog "timetrack/internal/log"
)

type (
	// MonthRow is one line of the monthly table.
	MonthRow struct {
		Month string
		Hours float64
		Label string
	}

	WeekRow struct {
		Week  string
		Hours float64
		Label string
	}

	// WeekGroup is the weekly table of one month.
	WeekGroup struct {
		Month string
		Weeks []WeekRow
	}
)

// HoursLabel renders a total the way the report shows it: "40 hours".
func HoursLabel(h float64) string {
	return core.FormatHours(h) + " hours"
}

// FormatMonthly turns monthly totals into table rows, keeping their order.
func FormatMonthly(m core.MonthlyHours) []MonthRow {
	rows := make([]MonthRow, 0, len(m))
	for _, t := range m {
		rows = append(rows, MonthRow{Month: t.Month, Hours: t.Hours, Label: HoursLabel(t.Hours)})
	}
	return rows
}

// FormatWeekly turns weekly totals into one table per month, keeping the
// order of months and of weeks within each month.
func FormatWeekly(w core.WeeklyHours) []WeekGroup {
	groups := make([]WeekGroup, 0, len(w))
	for _, g := range w {
		rows := make([]WeekRow, 0, len(g.Weeks))
		for _, t := range g.Weeks {
			rows = append(rows, WeekRow{Week: t.Week, Hours: t.Hours, Label: HoursLabel(t.Hours)})
		}
		groups = append(groups, WeekGroup{Month: g.Month, Weeks: rows})
	}
	return groups
}

// AggregateSource serves the hour totals. *client.Client implements it.
type AggregateSource interface {
	MonthlyHours(ctx context.Context) (core.MonthlyHours, error)
	WeeklyHours(ctx context.Context) (core.WeeklyHours, error)
}

// Report is the hours report view.
type Report struct {
	source AggregateSource
	opts   options

	mu      sync.Mutex
	monthly []MonthRow
	weekly  []WeekGroup
}

func NewReport(source AggregateSource, opts ...Option) *Report {
	return &Report{
		source:  source,
		opts:    newOptions(tlog.ComponentUI, opts),
		monthly: []MonthRow{},
		weekly:  []WeekGroup{},
	}
}

// Initialize fetches both tables concurrently. A failed fetch leaves its
// own table empty and does not cancel the other; the first error is
// returned.
func (r *Report) Initialize(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		m, err := r.source.MonthlyHours(ctx)
		if err != nil {
			r.opts.logger.ErrorContext(ctx, "Failed to load monthly hours", tlog.FieldError, err)
		}
		rows := FormatMonthly(m)
		r.mu.Lock()
		r.monthly = rows
		r.mu.Unlock()
		return err
	})
	g.Go(func() error {
		w, err := r.source.WeeklyHours(ctx)
		if err != nil {
			r.opts.logger.ErrorContext(ctx, "Failed to load weekly hours", tlog.FieldError, err)
		}
		groups := FormatWeekly(w)
		r.mu.Lock()
		r.weekly = groups
		r.mu.Unlock()
		return err
	})
	return g.Wait()
}

func (r *Report) Monthly() []MonthRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.monthly
}

func (r *Report) Weekly() []WeekGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.weekly
}

// RenderReport writes the monthly table followed by one weekly table per
// month.
func RenderReport(w io.Writer, monthly []MonthRow, weekly []WeekGroup) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Monthly Hours")
	fmt.Fprintln(tw, "Month\tTotal Hours")
	for _, row := range monthly {
		fmt.Fprintf(tw, "%s\t%s\n", row.Month, row.Label)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Weekly Hours by Month")
	for _, group := range weekly {
		fmt.Fprintf(tw, "\nMonth %s\n", group.Month)
		fmt.Fprintln(tw, "Week\tHours")
		for _, row := range group.Weeks {
			fmt.Fprintf(tw, "%s\t%s\n", row.Week, row.Label)
		}
	}
	return tw.Flush()
}
