// Command klarity-report prints one user's report for a period and can
// write the charts next to it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"klarity/internal/backend"
	"klarity/internal/charts"
	"klarity/internal/cli"
	"klarity/internal/config"
	"klarity/internal/core"
	"klarity/internal/log"
	"klarity/internal/period"
	"klarity/internal/report"
	"klarity/internal/session"
)

type options struct {
	user      string
	preset    string
	from      string
	to        string
	today     string
	top       int
	chartsDir string
	timeout   time.Duration
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("klarity-report", flag.ContinueOnError)
	fs.StringVar(&o.user, "user", "", "user id (required)")
	fs.StringVar(&o.preset, "preset", "all", "period: today, yesterday, last7days, last30days, this_month, this_year, custom, all")
	fs.StringVar(&o.from, "from", "", "first day of a custom period (YYYY-MM-DD)")
	fs.StringVar(&o.to, "to", "", "last day of a custom period (YYYY-MM-DD)")
	fs.StringVar(&o.today, "today", "", "override today (YYYY-MM-DD)")
	fs.IntVar(&o.top, "top", report.DefaultTopN, "categories to rank")
	fs.StringVar(&o.chartsDir, "charts", "", "directory to write balance.png and categories.png into")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "store timeout")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.user == "" {
		return o, errors.New("-user is required")
	}
	return o, nil
}

// request builds the period request. from/to imply a custom period.
func (o options) request() (period.Request, error) {
	preset := o.preset
	if o.from != "" || o.to != "" {
		preset = string(period.Custom)
	}
	p, err := period.ParsePreset(preset)
	if err != nil {
		return period.Request{}, err
	}
	req := period.Request{Preset: p}
	if p != period.Custom {
		return req, nil
	}
	if req.From, err = core.ParseDate(o.from); err != nil {
		return period.Request{}, fmt.Errorf("-from: %w", err)
	}
	if req.To, err = core.ParseDate(o.to); err != nil {
		return period.Request{}, fmt.Errorf("-to: %w", err)
	}
	return req, nil
}

func (o options) todayIn(loc *time.Location) (core.Date, error) {
	if o.today == "" {
		return core.DateOf(time.Now().In(loc)), nil
	}
	return core.ParseDate(o.today)
}

func main() {
	cli.LoadEnvFile()
	boot := config.Load()
	logger := cli.SetupLogger(boot.LogLevel, boot.LogFormat).WithComponent(log.ComponentCLI)

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts, logger); err != nil {
		logger.Error("Report failed", log.FieldUserID, opts.user, log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(opts options, logger *log.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)
	req, err := opts.request()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	today, err := opts.todayIn(loc)
	if err != nil {
		return fmt.Errorf("-today: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	be, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return err
	}
	defer be.Close()

	scfg, err := cli.SessionConfig(cfg)
	if err != nil {
		return err
	}
	// reports never write
	sess, err := session.NewManager(be.Fetcher, nil, scfg, logger).Session(ctx, opts.user)
	if err != nil {
		return err
	}
	if load, _ := sess.LastLoad(); load.Partial() {
		logger.Warn("Some records were skipped", log.FieldUserID, opts.user, "summary", load.Summary())
	}

	rep, err := sess.Report(req, today, opts.top)
	if err != nil {
		return err
	}
	if err := rep.WriteText(os.Stdout); err != nil {
		return err
	}
	if opts.chartsDir == "" {
		return nil
	}
	return writeCharts(opts.chartsDir, rep, logger)
}

func writeCharts(dir string, rep report.Report, logger *log.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	render := map[string]func() ([]byte, error){
		"balance.png":    func() ([]byte, error) { return charts.Balance(rep.Summary.CumulativeSeries) },
		"categories.png": func() ([]byte, error) { return charts.Categories(rep.TopCategories, "Top categories") },
	}
	for name, fn := range render {
		png, err := fn()
		if errors.Is(err, charts.ErrNoData) {
			logger.Info("Nothing to chart", "chart", name)
			continue
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return err
		}
		logger.Info("Chart written", "path", path, log.FieldOperation, log.OpRender)
	}
	return nil
}
