package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/slatehq/slate/internal/model"
	"github.com/slatehq/slate/internal/schedule"
	"github.com/slatehq/slate/internal/store"
)

// PlanCmd returns the plan command: a read-only view of a client's computed
// schedule, straight from the engine.
func PlanCmd() *cobra.Command {
	var (
		dbPath   string
		clientID string
		anchor   string
		weeks    int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print a client's computed production schedule",
		Long: `Run the scheduling engine over a client's backlog and print the weekly
buckets. Overloaded days and weeks are shown in red, stale items in yellow.
The anchor date defaults to today.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			anchorDay := time.Now().UTC()
			if anchor != "" {
				var err error
				anchorDay, err = time.Parse(model.DayFormat, anchor)
				if err != nil {
					return fmt.Errorf("invalid --anchor %q: want %s", anchor, model.DayFormat)
				}
			}
			return runPlan(dbPath, clientID, anchorDay, weeks)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "slate.db", "Path to the SQLite database")
	cmd.Flags().StringVarP(&clientID, "client", "c", "", "Client id or name")
	cmd.Flags().StringVar(&anchor, "anchor", "", "Anchor date (YYYY-MM-DD), defaults to today")
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 0, "Limit output to the first N weeks")
	cmd.MarkFlagRequired("client")

	return cmd
}

func runPlan(dbPath, clientRef string, anchor time.Time, maxWeeks int) error {
	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := findClient(ctx, s, clientRef)
	if err != nil {
		return err
	}

	items, err := s.ListItems(ctx, model.ItemFilter{ClientID: client.ID})
	if err != nil {
		return err
	}

	inputs := make([]schedule.Item, len(items))
	byID := make(map[string]model.Item, len(items))
	for i, it := range items {
		inputs[i] = it.ScheduleInput()
		byID[it.ID] = it
	}

	capacity := schedule.Capacity{WeeklyItems: client.WeeklyCapacity}
	slots, overruns := schedule.Allocate(inputs, capacity, anchor)
	groups := schedule.GroupByWeek(slots)
	if maxWeeks > 0 && len(groups) > maxWeeks {
		groups = groups[:maxWeeks]
	}

	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Printf("%s — %d items, capacity %d/week (limit %d/day), anchored %s\n\n",
		client.Name, len(items), client.WeeklyCapacity,
		schedule.DailyLimit(client.WeeklyCapacity), schedule.DayKey(anchor))

	if len(groups) == 0 {
		fmt.Println("Nothing scheduled.")
		return nil
	}

	for _, g := range groups {
		header := fmt.Sprintf("Week %d  %s … %s  (%d items)",
			g.WeekNumber, schedule.DayKey(g.WeekStart), schedule.DayKey(g.WeekEnd), g.TotalSlots)
		if g.Overloaded {
			red.Println(header + "  OVERLOADED")
		} else {
			bold.Println(header)
		}
		for _, slot := range g.Slots {
			item := byID[slot.Item.ID]
			line := fmt.Sprintf("  %s  [%-6s] %-16s %s",
				schedule.DayKey(slot.VisualDate), item.Kind, item.Status, item.Title)
			switch {
			case slot.Overloaded:
				red.Println(line + "  (over capacity)")
			case schedule.IsStale(slot.Item, slot.VisualDate):
				yellow.Println(line + "  (stale)")
			default:
				fmt.Println(line)
			}
		}
		fmt.Println()
	}

	for _, o := range overruns {
		yellow.Printf("warning: forward scan bound hit for item %s on %s (occupancy %d)\n",
			o.ItemID, schedule.DayKey(o.Day), o.Count)
	}

	return nil
}

// findClient resolves a --client flag by id first, then by exact name.
func findClient(ctx context.Context, s *store.Store, ref string) (*model.Client, error) {
	if c, err := s.GetClient(ctx, ref); err == nil {
		return c, nil
	}
	clients, err := s.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if c.Name == ref {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("no client with id or name %q", ref)
}
