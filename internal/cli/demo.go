package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/livesync/internal/database"
	"github.com/roach88/livesync/internal/domain"
	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/store"
	"github.com/roach88/livesync/internal/syncpoint"
)

// demoPosts is the listing the demo syncs before observing favourites.
var demoPosts = []domain.Post{
	{ID: 1, UserID: 1, Title: "sunt aut facere", IsFavorite: true},
	{ID: 2, UserID: 1, Title: "qui est esse", IsFavorite: true},
	{ID: 3, UserID: 1, Title: "ea molestias quasi", IsFavorite: true},
	{ID: 4, UserID: 2, Title: "eum et est occaecati"},
	{ID: 5, UserID: 2, Title: "nesciunt quas odio"},
}

// DemoSummary is the JSON payload printed after the demo's events.
type DemoSummary struct {
	Favorites []int64 `json:"favorites"`
	Watchers  int     `json:"watchers"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the favourites walkthrough",
		Long: `Sync five posts (three of them favourites), observe the favourites
listing, then mark post 4 as a favourite. The observer first receives the
three favourites in id order, then a valueAdded and a data event carrying
all four.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(rootOpts, cmd)
		},
	}
	return cmd
}

func runDemo(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	posts := domain.NewPosts(s.db)
	if err := posts.Sync(ctx, demoPosts); err != nil {
		return WrapExitError(ExitFailure, "failed to sync posts", err)
	}
	s.out.VerboseLog("synced %d posts", len(demoPosts))

	favorites := posts.Ref(0, domain.FilterFavorites)
	emit := func(t syncpoint.EventType) func(database.Snapshot[domain.Post]) {
		return func(snap database.Snapshot[domain.Post]) {
			records, err := database.EncodeAll(snap.Items)
			if err != nil {
				s.logger.Warn("failed to encode posts", "error", err)
				return
			}
			s.out.Event(NewEventRecord(t.String(), snap.Query.String(), records, snap.Diffs))
		}
	}
	var cancelErr error
	h := favorites.ObserveChildren(map[syncpoint.EventType]func(database.Snapshot[domain.Post]){
		syncpoint.ValueAdded: emit(syncpoint.ValueAdded),
		syncpoint.Data:       emit(syncpoint.Data),
	}, func(err error) { cancelErr = err })
	defer favorites.RemoveObserver(h)
	s.db.Flush()

	s.out.VerboseLog("marking post 4 as favorite")
	if err := posts.MarkFavorite(ctx, demoPosts[3], true); err != nil {
		return WrapExitError(ExitFailure, "failed to mark favorite", err)
	}
	s.db.Flush()

	if cancelErr != nil {
		return WrapExitError(ExitFailure, "favorites observer cancelled", cancelErr)
	}

	cached, _ := s.db.Records(favorites.Query())
	summary := DemoSummary{Favorites: ids(cached), Watchers: s.db.Watchers()}
	if s.out.Format == "json" {
		return s.out.Success(summary)
	}
	return s.out.Success(fmt.Sprintf("cache holds %d favorites %v", len(summary.Favorites), summary.Favorites))
}

func ids(records []ir.Object) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		if id, ok := store.RecordID(r); ok {
			out = append(out, id)
		}
	}
	return out
}
