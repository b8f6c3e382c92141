package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/engel/internal/models"
	"github.com/ternarybob/engel/internal/scraping"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one job in the foreground",
	Long: `Enqueues one job built from flags, waits until it finishes and prints its summary.

Examples:
  engel run --source FAVORITERS --entry-url https://eksisozluk.com/entry/123
  engel run --source FOLLOWERS --author-name some-author
  engel run --source TITLE_AUTHORS --entry-url https://eksisozluk.com/entry/123 --window LAST_24H
  engel run --source LIST --mode REVOKE
  engel run --source UNDO_ALL`,
	RunE: runJob,
}

var (
	runSource     string
	runMode       string
	runAuthorID   string
	runAuthorName string
	runKind       string
	runPostID     string
	runTitleID    string
	runTitleName  string
	runWindow     string
	runEntryURL   string
)

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "Target source (SINGLE, LIST, FAVORITERS, FOLLOWERS, TITLE_AUTHORS, UNDO_ALL)")
	runCmd.Flags().StringVar(&runMode, "mode", string(models.ModeApply), "APPLY or REVOKE")
	runCmd.Flags().StringVar(&runAuthorID, "author-id", "", "Author id (SINGLE)")
	runCmd.Flags().StringVar(&runAuthorName, "author-name", "", "Author name (SINGLE, FOLLOWERS)")
	runCmd.Flags().StringVar(&runKind, "kind", string(models.KindUser), "Relation kind for SINGLE (user, title, mute)")
	runCmd.Flags().StringVar(&runPostID, "post-id", "", "Post id (FAVORITERS)")
	runCmd.Flags().StringVar(&runTitleID, "title-id", "", "Title id (TITLE_AUTHORS)")
	runCmd.Flags().StringVar(&runTitleName, "title-name", "", "Title name (TITLE_AUTHORS)")
	runCmd.Flags().StringVar(&runWindow, "window", string(models.WindowAll), "Title window (ALL, LAST_24H)")
	runCmd.Flags().StringVar(&runEntryURL, "entry-url", "", "Post URL to read post, author and title from")
	runCmd.MarkFlagRequired("source")
}

func runJob(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	stopSignals := watchSignals(application, nil)
	defer stopSignals()

	spec := models.TargetSpec{
		AuthorID:   runAuthorID,
		AuthorName: runAuthorName,
		Kind:       models.RelationKind(strings.ToLower(runKind)),
		PostID:     runPostID,
		TitleID:    runTitleID,
		TitleName:  runTitleName,
		Window:     models.TimeWindow(strings.ToUpper(runWindow)),
	}

	if runEntryURL != "" {
		meta, err := application.Scraper.EntryMeta(cmd.Context(), runEntryURL)
		if err != nil {
			return fmt.Errorf("failed to read entry %s: %w", runEntryURL, err)
		}
		fillFromEntry(&spec, meta)
		logger.Info().
			Str("entry_id", meta.EntryID).
			Str("author", meta.AuthorName).
			Str("title", meta.TitleName).
			Msg("Entry resolved")
	}

	job, err := models.NewJob(
		models.SourceKind(strings.ToUpper(runSource)),
		models.Mode(strings.ToUpper(runMode)),
		spec,
	)
	if err != nil {
		return err
	}

	if err := application.Scheduler.Enqueue(job); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	if err := application.Scheduler.Wait(context.Background()); err != nil {
		return err
	}

	summary, err := application.StorageManager.SummaryStorage().GetSummary(context.Background(), job.ID)
	if err != nil {
		return fmt.Errorf("failed to load job summary: %w", err)
	}
	return printJSON(summary)
}

// fillFromEntry copies scraped entry details into the fields the flags left empty
func fillFromEntry(spec *models.TargetSpec, meta *scraping.EntryMeta) {
	if spec.PostID == "" {
		spec.PostID = meta.EntryID
	}
	if spec.AuthorID == "" {
		spec.AuthorID = meta.AuthorID
	}
	if spec.AuthorName == "" {
		spec.AuthorName = meta.AuthorName
	}
	if spec.TitleID == "" {
		spec.TitleID = meta.TitleID
	}
	if spec.TitleName == "" {
		spec.TitleName = meta.TitleName
	}
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
