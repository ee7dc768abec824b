package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"

	"timetrack/internal/cli"
	"timetrack/internal/client"
	"timetrack/internal/config"
	"timetrack/internal/core"
	"timetrack/internal/export"
	tlog "timetrack/internal/log"
	"timetrack/internal/ui"
)

type command func(ctx context.Context, args []string) error

type app struct {
	loc      *time.Location
	store    *client.Client
	session  *client.Session
	notifier ui.Notifier
	logger   *tlog.Logger
	dates    *ui.DateResolver
	now      func() time.Time

	in  io.Reader
	out io.Writer
	err io.Writer
}

func newApp(confPath string, verbose bool, in io.Reader, out, errOut io.Writer) (*app, error) {
	cfg, err := config.LoadClient(confPath)
	if err != nil {
		return nil, err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	loc, _ := cfg.Location()

	now := time.Now
	store := client.FromConfig(cfg)
	logger := cli.SetupTerminalLogger(errOut, level)
	logger.Debug("Using event store", "base_url", cfg.BaseURL)
	return &app{
		loc:      loc,
		store:    store,
		session:  client.NewSession(store),
		notifier: ui.WriterNotifier{Out: out, Verbose: verbose},
		logger:   logger,
		dates:    ui.NewDateResolver(now),
		now:      now,
		in:       in,
		out:      out,
		err:      errOut,
	}, nil
}

func (a *app) commands() map[string]command {
	return map[string]command{
		"list":   a.list,
		"add":    a.add,
		"show":   a.show,
		"edit":   a.edit,
		"delete": a.remove,
		"report": a.report,
		"export": a.export,
	}
}

func (a *app) uiOptions() []ui.Option {
	return []ui.Option{
		ui.WithNotifier(a.notifier),
		ui.WithLogger(a.logger),
		ui.WithLocation(a.loc),
		ui.WithClock(a.now),
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.err)
	return fs
}

// fieldFlags registers the event field flags and returns a function that
// applies only the flags given on the command line.
func (a *app) fieldFlags(fs *flag.FlagSet) func(set func(name, value string) error) error {
	values := map[string]*string{
		core.FieldProject:     fs.String(core.FieldProject, "", "Project name"),
		core.FieldHours:       fs.String(core.FieldHours, "", "Hours, in steps of 0.5"),
		core.FieldDate:        fs.String(core.FieldDate, "", "Date, YYYY-MM-DD or a phrase like yesterday"),
		core.FieldDescription: fs.String(core.FieldDescription, "", "Description"),
	}
	return func(set func(name, value string) error) error {
		var err error
		fs.Visit(func(f *flag.Flag) {
			v, ok := values[f.Name]
			if !ok || err != nil {
				return
			}
			value := *v
			if f.Name == core.FieldDate {
				if value, err = a.dates.Resolve(value); err != nil {
					return
				}
			}
			err = set(f.Name, value)
		})
		return err
	}
}

func (a *app) loadCalendar(ctx context.Context) (*ui.Calendar, error) {
	cal := ui.NewCalendar(a.session, a.uiOptions()...)
	if err := cal.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return cal, nil
}

// selectEvent loads the calendar and selects the event named by args[0].
func (a *app) selectEvent(ctx context.Context, args []string) (*ui.Calendar, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one event id", errUsage)
	}
	id, err := core.ParseEventID(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	cal, err := a.loadCalendar(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := cal.Find(id)
	if !ok {
		return nil, fmt.Errorf("event %d not found", id)
	}
	if err := cal.Select(e); err != nil {
		return nil, err
	}
	return cal, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	project := fs.String("project", "", "Only events of this project, ignoring case")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cal, err := a.loadCalendar(ctx)
	if err != nil {
		return err
	}

	fold := cases.Fold()
	want := fold.String(*project)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tTITLE\tDESCRIPTION")
	for _, e := range cal.Events() {
		if *project != "" && fold.String(e.Project) != want {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Date, span(e.Start, e.End), e.Title, e.Description)
	}
	return tw.Flush()
}

// span prints a derived time range; an end past midnight carries its date.
func span(start, end time.Time) string {
	if end.YearDay() != start.YearDay() || end.Year() != start.Year() {
		return start.Format("15:04") + "-" + end.Format("Jan 2 15:04")
	}
	return start.Format("15:04") + "-" + end.Format("15:04")
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	apply := a.fieldFlags(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}

	form := ui.NewForm(a.session, a.uiOptions()...)
	if err := apply(form.ChangeField); err != nil {
		return err
	}
	e, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	a.printEvent(e)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	cal, err := a.selectEvent(ctx, args)
	if err != nil {
		return err
	}
	e, _ := cal.Selected()
	a.printEvent(e)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := a.flags("edit")
	apply := a.fieldFlags(fs)
	if err := fs.Parse(reorder(args)); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NFlag() == 0 {
		return fmt.Errorf("%w: nothing to change", errUsage)
	}

	cal, err := a.selectEvent(ctx, fs.Args())
	if err != nil {
		return err
	}
	if err := cal.StartEdit(); err != nil {
		return err
	}
	if err := apply(cal.ChangeField); err != nil {
		return err
	}
	return cal.SubmitEdit(ctx)
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	assumeYes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(reorder(args)); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cal, err := a.selectEvent(ctx, fs.Args())
	if err != nil {
		return err
	}
	e, _ := cal.Selected()
	a.printEvent(e)
	if !*assumeYes && !cli.Confirm(a.in, a.out, "Delete this event?") {
		cal.Close()
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	return cal.Delete(ctx)
}

func (a *app) report(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: report takes no arguments", errUsage)
	}
	r := ui.NewReport(a.store, a.uiOptions()...)
	err := r.Initialize(ctx)
	if rerr := ui.RenderReport(a.out, r.Monthly(), r.Weekly()); rerr != nil {
		return rerr
	}
	if err != nil {
		return fmt.Errorf("report incomplete: %w", err)
	}
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	out := fs.String("out", "", "Output file, stdout when empty")
	domain := fs.String("domain", "timetrack.local", "Domain part of event UIDs")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	events, err := a.session.List(ctx)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	w := a.out
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.ICS(w, a.loc, *domain, events, a.now()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if *out != "" {
		a.logger.Info("Events exported", "count", len(events), "file", *out)
	}
	return nil
}

func (a *app) printEvent(e core.Event) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", e.ID)
	fmt.Fprintf(tw, "Project:\t%s\n", e.Project)
	fmt.Fprintf(tw, "Hours:\t%s\n", core.FormatHours(e.Hours))
	fmt.Fprintf(tw, "Date:\t%s\n", e.Date)
	fmt.Fprintf(tw, "Description:\t%s\n", e.Description)
	_ = tw.Flush()
}

// reorder moves flags ahead of positional arguments so that both
// "edit 3 --hours 2" and "edit --hours 2 3" parse.
func reorder(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)
			if !hasInlineValue(arg) && !isBoolFlag(arg) && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		positional = append(positional, arg)
	}
	return append(flags, positional...)
}

func hasInlineValue(arg string) bool {
	for _, r := range arg {
		if r == '=' {
			return true
		}
	}
	return false
}

func isBoolFlag(arg string) bool {
	return arg == "-yes" || arg == "--yes"
}
