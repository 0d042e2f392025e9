// Package stats implements the detection statistics command.
package stats

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/datastore"
)

// Command creates the command for printing detection statistics.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show note detection statistics from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(settings)
		},
	}
}

func runStats(settings *conf.Settings) error {
	store := datastore.New(settings, nil)
	if store == nil {
		return fmt.Errorf("no database output is enabled, nothing to report")
	}

	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	counts, err := store.CountByNote()
	if err != nil {
		return err
	}

	now := time.Now()
	day, err := store.CountEventsSince(now.Add(-24 * time.Hour))
	if err != nil {
		return err
	}
	week, err := store.CountEventsSince(now.Add(-7 * 24 * time.Hour))
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)

	var total int64
	for _, c := range counts {
		total += c.Count
	}

	p.Printf("Detections: %d total, %d in the last 24h, %d in the last 7 days\n\n", total, day, week)

	if len(counts) == 0 {
		fmt.Println("no notes recorded yet")
		return nil
	}

	fmt.Printf("%-6s %s\n", "Note", "Count")
	for _, c := range counts {
		p.Printf("%-6s %d\n", c.Note, c.Count)
	}

	return nil
}
