// Command replay runs recorded conversations through the drift guard and
// reports every turn whose events or instruction differ from the fixture.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/audit"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/replay"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
	logx "github.com/tanpawarit/Chative-Drift-Guard/pkg/logger"
)

type options struct {
	jsonOutput   bool
	verbose      bool
	auditSQLite  string
	maxTopics    int
	dormantAfter int
	allowRevival bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := statex.DefaultTrackerConfig()
	opts := &options{
		maxTopics:    defaults.MaxTopics,
		dormantAfter: defaults.DormantAfterTurns,
		allowRevival: defaults.AllowRevival,
	}

	cmd := &cobra.Command{
		Use:          "replay [fixture.yaml ...]",
		Short:        "Replay recorded conversations through the drift guard",
		Long:         `Each fixture is run against a fresh session. The command fails when any turn's drift events, mode or length cap differ from the fixture's expectations.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.jsonOutput, "json", false, "print full reports as JSON lines")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every processed turn")
	flags.StringVar(&opts.auditSQLite, "audit-sqlite", "", "record replayed turns to this SQLite database")
	flags.IntVar(&opts.maxTopics, "max-topics", opts.maxTopics, "topic tracker capacity")
	flags.IntVar(&opts.dormantAfter, "dormant-after", opts.dormantAfter, "turns of silence before a topic goes dormant")
	flags.BoolVar(&opts.allowRevival, "allow-revival", opts.allowRevival, "let user mentions revive rejected topics")

	return cmd
}

func runReplay(ctx context.Context, stdout, stderr io.Writer, opts *options, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.InfoLevel
	}
	log.Logger = logx.New(logx.Config{Output: stderr}).Level(level)

	tracker := statex.TrackerConfig{
		MaxTopics:         opts.maxTopics,
		DormantAfterTurns: opts.dormantAfter,
		AllowRevival:      opts.allowRevival,
	}
	if err := tracker.Validate(); err != nil {
		return err
	}

	runOpts := []replay.Option{replay.WithTrackerConfig(tracker)}
	if dsn := strings.TrimSpace(opts.auditSQLite); dsn != "" {
		sink, err := audit.Open(ctx, audit.Config{Driver: audit.DriverSQLite, DSN: dsn})
		if err != nil {
			return err
		}
		defer sink.Close()
		runOpts = append(runOpts, replay.WithAuditSink(sink))
	}

	enc := json.NewEncoder(stdout)
	failed := 0
	for _, path := range paths {
		fx, err := replay.LoadFile(path)
		if err != nil {
			return err
		}
		report, err := replay.Run(ctx, fx, runOpts...)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !report.Passed() {
			failed++
		}

		if opts.jsonOutput {
			if err := enc.Encode(report); err != nil {
				return err
			}
			continue
		}
		printReport(stdout, path, report)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed", failed, len(paths))
	}
	return nil
}

func printReport(w io.Writer, path string, report replay.Report) {
	status := "PASS"
	if !report.Passed() {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (%s, %d turns)\n", status, report.Name, path, len(report.Turns))
	for _, turn := range report.Turns {
		res := turn.Result
		events := make([]string, 0, len(res.Events))
		for _, ev := range res.Events {
			events = append(events, string(ev.Type))
		}
		fmt.Fprintf(w, "  turn %d: topic %q -> %q, events [%s], mode %s, max_length %d\n",
			turn.Index, res.TopicBefore, res.TopicAfter, strings.Join(events, " "),
			res.Instruction.Mode, res.Instruction.MaxLength)
		for _, m := range turn.Mismatches {
			fmt.Fprintf(w, "    mismatch: %s\n", m)
		}
	}
}
