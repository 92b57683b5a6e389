package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Query queryFlags
	All   bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <entity>",
		Short: "Delete every record matched by a query",
		Long: `Delete the records a query returns, window included.

An unfiltered delete removes every record of the entity and requires --all.

Examples:
  livesync delete Post --where id=4 --db ./live.db
  livesync delete Comment --where postID=1 --db ./live.db
  livesync delete Post --all --db ./live.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}

	opts.Query.register(cmd)
	cmd.Flags().BoolVar(&opts.All, "all", false, "allow deleting without a filter")

	return cmd
}

func runDelete(opts *DeleteOptions, entity string, cmd *cobra.Command) error {
	if !opts.Query.filtered() && !opts.All {
		return NewExitError(ExitCommandError, "refusing to delete every "+entity+" record without --all")
	}
	q, err := opts.Query.build(entity)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	f := s.db.Delete(ctx, q)
	if err := f.Wait(ctx); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("write %s failed", f.ID()), err)
	}

	if s.out.Format == "json" {
		return s.out.Success(WriteResult{WriteID: f.ID(), Entity: entity, Query: q.String()})
	}
	return s.out.Success(fmt.Sprintf("deleted %s (write %s)", q, f.ID()))
}
