// Package main is the entry point for the netusage CLI.
// It records cumulative interface byte counters into a local SQLite
// log (sample, watch) and reports usage over time windows by
// differencing consecutive readings (report).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netusage-app/netusage/internal/config"
	"github.com/netusage-app/netusage/internal/netmodel"
	"github.com/netusage-app/netusage/internal/reader"
	"github.com/netusage-app/netusage/internal/report"
	"github.com/netusage-app/netusage/internal/sampler"
	"github.com/netusage-app/netusage/internal/store"
	"github.com/netusage-app/netusage/internal/window"
)

// version is set at build time via -ldflags.
var version = "dev"

const usageText = `Usage: netusage <command> [flags]

Commands:
  sample   Record one counter sample
  watch    Record samples continuously until interrupted
  report   Report usage over a time window

Common flags (every command):
  --config PATH   Configuration file (YAML)
  --db PATH       Sample database path
  --iface NAME    Interface to sample/report (default: auto-detect)
  --tz ZONE       IANA timezone for day boundaries (default: local)

Report selectors (exactly one):
  --day YYYY-MM-DD [--hourly]
  --from DATETIME --to DATETIME
  --last DURATION (e.g. 30m, 24h, 7d)
  --since DATE-or-DATETIME

Run "netusage <command> -h" for command-specific flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "sample":
		cmdSample(os.Args[2:])
	case "watch":
		cmdWatch(os.Args[2:])
	case "report":
		cmdReport(os.Args[2:])
	case "version", "-version", "--version":
		fmt.Printf("netusage %s\n", version)
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "netusage: unknown command %q\n\n%s", os.Args[1], usageText)
		os.Exit(2)
	}
}

// commonFlags holds the flags shared by every subcommand.
type commonFlags struct {
	configPath *string
	db         *string
	iface      *string
	tz         *string
}

// addCommonFlags registers the shared flags on a subcommand flag set.
func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "Path to configuration file"),
		db:         fs.String("db", "", "Sample database path"),
		iface:      fs.String("iface", "", "Interface to sample (default: auto-detect)"),
		tz:         fs.String("tz", "", "IANA timezone for day boundaries (default: local)"),
	}
}

// loadConfig builds the effective configuration from the common flags.
// Without an explicit --config, standard config locations are probed.
func loadConfig(cf commonFlags, interval time.Duration) *config.Config {
	path := *cf.configPath
	if path == "" {
		path = config.Locate()
	}
	cfg, err := config.Load(path, config.CLIOverrides{
		DBPath:   *cf.db,
		Iface:    *cf.iface,
		TZ:       *cf.tz,
		Interval: interval,
	})
	if err != nil {
		fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(fmt.Errorf("invalid configuration: %w", err))
	}
	return cfg
}

// openEnv wires the shared runtime pieces: logger, store, reader, and
// the resolved interface name.
func openEnv(cfg *config.Config) (*zap.Logger, *store.DB, *reader.Chain, string) {
	logger := initLogger(cfg)

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		fatal(err)
	}

	rd := reader.New(logger)

	iface := cfg.Sampling.Interface
	if iface == "" {
		iface = reader.Detect(context.Background())
		logger.Debug("Auto-detected interface", zap.String("iface", iface))
	}
	return logger, st, rd, iface
}

func cmdSample(args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	cf := addCommonFlags(fs)
	fs.Parse(args)

	cfg := loadConfig(cf, 0)
	logger, st, rd, iface := openEnv(cfg)
	defer logger.Sync()
	defer st.Close()

	s := sampler.New(rd, st, iface, cfg.Sampling.Interval.Duration, logger)
	sample, err := s.SampleOnce(context.Background())
	if err != nil {
		fatal(err)
	}
	fmt.Printf("[sample] %s @ %s rx=%d tx=%d\n",
		sample.Iface, sample.Time().Format(time.RFC3339), sample.RxBytes, sample.TxBytes)
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cf := addCommonFlags(fs)
	interval := fs.Duration("interval", sampler.DefaultInterval, "Sampling interval")
	fs.Parse(args)

	// Only an interval the user actually typed overrides the config
	// layers; the flag's display default must not mask a file value.
	var cliInterval time.Duration
	if flagGiven(fs, "interval") {
		cliInterval = *interval
	}
	cfg := loadConfig(cf, cliInterval)
	logger, st, rd, iface := openEnv(cfg)
	defer logger.Sync()
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sampler.New(rd, st, iface, cfg.Sampling.Interval.Duration, logger)
	if err := s.Run(ctx); err != nil {
		fatal(err)
	}
}

func cmdReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	cf := addCommonFlags(fs)
	day := fs.String("day", "", "Report a calendar day (YYYY-MM-DD)")
	hourly := fs.Bool("hourly", false, "With --day, add an hourly breakdown")
	from := fs.String("from", "", "Range start (e.g. 2025-11-01T00:00:00)")
	to := fs.String("to", "", "Range end")
	last := fs.String("last", "", "Relative window (e.g. 30m, 24h, 7d)")
	since := fs.String("since", "", "From a date or date-time until now")
	update := fs.Bool("update", false, "Take a fresh sample before reporting")
	fs.Parse(args)

	cfg := loadConfig(cf, 0)
	logger, st, rd, iface := openEnv(cfg)
	defer logger.Sync()
	defer st.Close()

	ctx := context.Background()

	if *update {
		s := sampler.New(rd, st, iface, cfg.Sampling.Interval.Duration, logger)
		if _, err := s.SampleOnce(ctx); err != nil {
			fatal(err)
		}
	}

	spec := window.Spec{
		Day:   *day,
		From:  *from,
		To:    *to,
		Last:  *last,
		Since: *since,
		TZ:    cfg.Report.Timezone,
	}
	w, err := window.NewResolver().Resolve(spec)
	if err != nil {
		fatal(err)
	}

	composer := report.NewComposer(st, logger)
	out, err := composer.Compose(ctx, iface, windowLabel(spec, w), w, *hourly && *day != "")
	if err != nil {
		fatal(err)
	}
	fmt.Print(out)
}

// flagGiven reports whether the named flag was set on the command line.
func flagGiven(fs *flag.FlagSet, name string) bool {
	given := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			given = true
		}
	})
	return given
}

// windowLabel names the resolved window in the report header.
func windowLabel(spec window.Spec, w netmodel.Window) string {
	switch {
	case spec.Day != "":
		return spec.Day
	case spec.Last != "":
		return "last " + spec.Last
	case spec.From != "":
		return spec.From + " .. " + spec.To
	default:
		return time.Unix(w.Start, 0).Format(time.RFC3339) + " .. " +
			time.Unix(w.End, 0).Format(time.RFC3339)
	}
}

// initLogger creates a zap logger based on the configuration.
// It outputs to stderr (human-readable, so reports on stdout stay
// clean) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}

// fatal reports a fatal error on stderr and exits non-zero.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "netusage: %v\n", err)
	os.Exit(1)
}
