package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/syncpoint"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Query  queryFlags
	Events []string
	Input  string // records to upsert after registering; "-" is stdin
	Count  int    // stop after this many deliveries; 0 means unlimited
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <entity>",
		Short: "Observe a query and stream its changes",
		Long: `Observe a query and print every delivery: the current result first,
then one line per event type after each write that changes it.

With --input, records are read one per line (JSON or YAML flow syntax),
upserted one at a time, and the command exits once they are all applied.
Without it, the command runs until interrupted or --count deliveries.

Examples:
  livesync watch Post --where isFavorite=true --order id
  livesync watch Post --events valueAdded,data --input posts.jsonl
  livesync watch Comment --where postID=1 --format json --db ./live.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	opts.Query.register(cmd)
	cmd.Flags().StringSliceVar(&opts.Events, "events", []string{"data"}, "event types to print (data, valueAdded, valueDeleted, valueMoved, valueUpdated)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", `records to upsert after registering ("-" for stdin)`)
	cmd.Flags().IntVar(&opts.Count, "count", 0, "exit after this many deliveries")

	return cmd
}

func runWatch(opts *WatchOptions, entity string, cmd *cobra.Command) error {
	q, err := opts.Query.build(entity)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	types := make([]syncpoint.EventType, 0, len(opts.Events))
	for _, name := range opts.Events {
		t, err := syncpoint.ParseEventType(strings.TrimSpace(name))
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --events", err)
		}
		types = append(types, t)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext(cmd, s.logger)
	defer stop()

	// Callbacks run one at a time on the delivery queue.
	var (
		delivered int
		doneOnce  sync.Once
		done      = make(chan struct{})
		cancelled = make(chan error, 1)
	)
	finish := func() { doneOnce.Do(func() { close(done) }) }

	h := s.db.NextHandle()
	callbacks := make(map[syncpoint.EventType]syncpoint.Callback, len(types))
	for _, t := range types {
		callbacks[t] = func(snap syncpoint.Snapshot) {
			if opts.Count > 0 && delivered >= opts.Count {
				return
			}
			delivered++
			if err := s.out.Event(NewEventRecord(t.String(), q.String(), snap.Records(), snap.Diffs())); err != nil {
				s.logger.Warn("failed to write event", "error", err)
			}
			if opts.Count > 0 && delivered == opts.Count {
				finish()
			}
		}
	}
	cancel := func(err error) {
		s.out.Event(EventRecord{Event: "cancel", Query: q.String(), Error: err.Error()})
		cancelled <- err
	}

	reg := syncpoint.NewRegistration(h, callbacks, cancel)
	if err := s.db.AddEventRegistration(ctx, reg, q); err != nil {
		s.db.Flush()
		return WrapExitError(ExitFailure, "watch failed", err)
	}
	defer s.db.RemoveEventRegistration(h, q, nil)
	s.logger.Debug("watching", "query", q.String(), "handle", h)

	if opts.Input != "" {
		err := feedInput(ctx, s, q, opts.Input, cmd.InOrStdin())
		s.db.Flush()
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-done:
		return nil
	case err := <-cancelled:
		return WrapExitError(ExitFailure, "watch cancelled", err)
	}
}

// feedInput upserts the records in path, one line at a time, waiting for
// each write and its deliveries before reading the next line.
func feedInput(ctx context.Context, s *session, q query.Query, path string, stdin io.Reader) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open input", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		records, err := parseRecords([]byte(text))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("input line %d", line), err)
		}
		f := s.db.Update(ctx, query.New(q.Entity()), records)
		if err := f.Wait(ctx); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("input line %d: write %s failed", line, f.ID()), err)
		}
		s.db.Flush()
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return nil
}
