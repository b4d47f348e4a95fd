// Labelsweep archives Gmail inbox messages by label.
//
// Gmail's inbox is a label, not a folder: archiving a message means
// removing \Inbox while every other label stays attached. Labelsweep
// drives that mutation over IMAP for all inbox messages carrying a
// given label, with a move-based fallback when the label store does
// not stick. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	labelsweep archive <label>   Archive all inbox messages carrying the label
//	labelsweep init [dir]        Write a starter config.yaml
//	labelsweep labels            List user labels with inbox counts
//	labelsweep senders           Count senders of unlabeled inbox messages
//	labelsweep trash [-watch]    Empty the trash, once or on a cycle
//	labelsweep history [n]       Show recent sweeps from the journal
//	labelsweep version           Print version and build information
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/labelsweep/labelsweep/internal/archive"
	"github.com/labelsweep/labelsweep/internal/buildinfo"
	"github.com/labelsweep/labelsweep/internal/config"
	"github.com/labelsweep/labelsweep/internal/gmail"
	"github.com/labelsweep/labelsweep/internal/journal"
	"github.com/labelsweep/labelsweep/internal/labels"
	"github.com/labelsweep/labelsweep/internal/report"
	"github.com/labelsweep/labelsweep/internal/senders"
	"github.com/labelsweep/labelsweep/internal/trash"
)

// main constructs the OS-level environment and delegates to [run],
// keeping os.Exit, os.Stdout, and os.Args out of the application logic
// so the whole lifecycle can be driven from tests.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand: the flag
// package relies on package-level globals, which makes it impossible
// to call run() concurrently from tests, and the argument surface here
// is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var verbose bool
	var watch bool
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-v" || args[i] == "--verbose":
			verbose = true
		case args[i] == "-watch" || args[i] == "--watch":
			watch = true
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "archive":
		if len(cmdArgs) != 1 {
			return fmt.Errorf("usage: labelsweep archive <label>")
		}
		return runArchive(ctx, stdout, stderr, configPath, cmdArgs[0], verbose)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "labels":
		return runLabels(ctx, stdout, stderr, configPath)
	case "senders":
		return runSenders(ctx, stdout, stderr, configPath)
	case "trash":
		return runTrash(ctx, stdout, stderr, configPath, watch)
	case "history":
		limit := 20
		if len(cmdArgs) > 0 {
			n, err := strconv.Atoi(cmdArgs[0])
			if err != nil || n < 1 {
				return fmt.Errorf("usage: labelsweep history [count]")
			}
			limit = n
		}
		return runHistory(stdout, configPath, limit)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// setup loads configuration and builds the logger and session
// provider every networked subcommand starts from. Logs go to stderr
// so tables and summaries on stdout stay clean.
func setup(stderr io.Writer, configPath string) (*config.Config, *slog.Logger, *gmail.Provider, error) {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(stderr, level)
	logger.Debug("config loaded", "path", cfgPath)
	return cfg, logger, gmail.NewProvider(cfg, logger), nil
}

// runArchive handles "labelsweep archive <label>": the full sweep,
// with per-message progress on stdout and the outcome journaled.
func runArchive(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, label string, verbose bool) error {
	cfg, logger, provider, err := setup(stderr, configPath)
	if err != nil {
		return err
	}

	reporter := report.New(stdout, verbose)
	sweeper := archive.NewSweeper(provider, archive.Options{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.Backoff(),
		BatchSize:  cfg.BatchSize,
		AllMail:    cfg.AllMail,
	}, reporter.Done, logger)

	rep, runErr := sweeper.Run(ctx, label)
	reporter.Summary(rep)

	if path, err := cfg.JournalPath(); err != nil {
		logger.Warn("journal unavailable", "error", err)
	} else if store, err := journal.Open(path); err != nil {
		logger.Warn("journal unavailable", "error", err)
	} else {
		if err := store.Record(rep); err != nil {
			logger.Warn("journal write failed", "error", err)
		}
		store.Close()
	}

	if runErr != nil {
		return fmt.Errorf("sweep: %w", runErr)
	}
	if rep.Failed > 0 {
		return fmt.Errorf("sweep finished with %d of %d messages not archived", rep.Failed, rep.Attempted)
	}
	return nil
}

// runLabels handles "labelsweep labels".
func runLabels(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	_, _, provider, err := setup(stderr, configPath)
	if err != nil {
		return err
	}
	sess, err := provider.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	counts, err := labels.InboxCounts(ctx, sess)
	if err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	labels.Write(stdout, counts)
	return nil
}

// runSenders handles "labelsweep senders".
func runSenders(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	cfg, _, provider, err := setup(stderr, configPath)
	if err != nil {
		return err
	}
	sess, err := provider.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	counts, err := senders.Unlabeled(ctx, sess, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("senders: %w", err)
	}
	senders.Write(stdout, counts)
	return nil
}

// runTrash handles "labelsweep trash", one cycle by default or a
// watch loop with -watch.
func runTrash(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, watch bool) error {
	cfg, logger, provider, err := setup(stderr, configPath)
	if err != nil {
		return err
	}
	cleaner := trash.NewCleaner(func(ctx context.Context) (trash.Session, error) {
		return provider.OpenSession(ctx)
	}, cfg.BatchSize, logger)

	if watch {
		logger.Info("watching trash", "interval", cfg.CheckInterval())
		err := cleaner.Watch(ctx, cfg.CheckInterval())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	removed, err := cleaner.CleanOnce(ctx)
	if err != nil {
		return fmt.Errorf("trash: %w", err)
	}
	fmt.Fprintf(stdout, "removed %d messages from trash\n", removed)
	return nil
}

// runHistory handles "labelsweep history [n]".
func runHistory(stdout io.Writer, configPath string, limit int) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	path, err := cfg.JournalPath()
	if err != nil {
		return err
	}
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "no sweeps recorded")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tLABEL\tCANDIDATES\tARCHIVED\tFAILED\tREAD\tTOOK")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			e.Started.Format("2006-01-02 15:04"),
			e.Label, e.Candidates, e.Archived, e.Failed, e.MarkedRead,
			e.Finished.Sub(e.Started).Round(time.Second),
		)
	}
	return tw.Flush()
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Labelsweep - Gmail label-based archival")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: labelsweep [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  archive <label>  Archive all inbox messages carrying the label")
	fmt.Fprintln(w, "  init [dir]       Write a starter config.yaml (default: .)")
	fmt.Fprintln(w, "  labels           List user labels with inbox message counts")
	fmt.Fprintln(w, "  senders          Count senders of unlabeled inbox messages")
	fmt.Fprintln(w, "  trash            Empty the trash (once, or repeatedly with -watch)")
	fmt.Fprintln(w, "  history [n]      Show the n most recent sweeps (default 20)")
	fmt.Fprintln(w, "  version          Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w, "  -v, --verbose     Print a line for every archived message")
	fmt.Fprintln(w, "  -watch            Keep emptying the trash on the configured interval")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/labelsweep/config.yaml, /etc/labelsweep/config.yaml")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}
