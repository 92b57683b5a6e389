package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

// WriteResult is the JSON payload of put and delete.
type WriteResult struct {
	WriteID string `json:"write_id"`
	Entity  string `json:"entity"`
	Query   string `json:"query,omitempty"`
	Records int    `json:"records,omitempty"`
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <entity> <file>",
		Short: "Upsert records from a YAML or JSON file",
		Long: `Upsert records into the store. The file holds a single record or a
list of records, in YAML or JSON; every record needs an integer id.
Use "-" to read from stdin.

Examples:
  livesync put Post posts.yaml --db ./live.db
  echo '[{"id": 1, "title": "hello"}]' | livesync put Post - --db ./live.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runPut(opts *RootOptions, entity, path string, cmd *cobra.Command) error {
	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}
	records, err := parseRecords(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse records", err)
	}
	if err := query.Validate(query.New(entity)); err != nil {
		return WrapExitError(ExitCommandError, "invalid entity", err)
	}

	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	f := s.db.Update(ctx, query.New(entity), records)
	if err := f.Wait(ctx); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("write %s failed", f.ID()), err)
	}

	if s.out.Format == "json" {
		return s.out.Success(WriteResult{WriteID: f.ID(), Entity: entity, Records: len(records)})
	}
	return s.out.Success(fmt.Sprintf("upserted %d %s record(s) (write %s)", len(records), entity, f.ID()))
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// parseRecords decodes one record or a list of records. JSON input is
// accepted as YAML.
func parseRecords(data []byte) ([]ir.Object, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var raw []any
	switch v := doc.(type) {
	case nil:
		return nil, fmt.Errorf("no records")
	case map[string]any:
		raw = []any{v}
	case []any:
		raw = v
	default:
		return nil, fmt.Errorf("expected a record or a list of records, got %T", doc)
	}

	records := make([]ir.Object, len(raw))
	for i, r := range raw {
		v, err := ir.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		obj, ok := v.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("record %d: expected an object, got %T", i, r)
		}
		records[i] = obj
	}
	return records, nil
}
