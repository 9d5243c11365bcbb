package cmd

import (
	"fmt"
	"log"

	apperrors "github.com/killallgit/transcript-sync/pkg/errors"
	"github.com/killallgit/transcript-sync/pkg/transcript"
	"github.com/spf13/cobra"
)

// importCmd seeds a transcript's regions from a subtitle file
var importCmd = &cobra.Command{
	Use:   "import <file-or-url>",
	Short: "Import regions from a WebVTT, SRT or JSON transcript",
	Long: `Create one region per timed cue of a transcript file.

The source may be a local path or an http(s) URL. The format is detected from
the file name, content type or content unless --format is given. Region ids
are derived from the transcript id and cue position, so importing the same
file again skips the regions that already exist.

Example:
  transcript-sync import --transcript t1 --user alice episode.vtt
  transcript-sync import --transcript t1 https://example.com/episode.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("server", "", "server URL (overrides sync.server_url)")
	importCmd.Flags().String("transcript", "", "transcript id (overrides sync.transcript_id)")
	importCmd.Flags().String("user", "", "user id (overrides sync.user_id)")
	importCmd.Flags().String("format", "", "transcript format (vtt, srt, json)")
	importCmd.Flags().Bool("dry-run", false, "parse the source without creating regions")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := clientConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	doc, err := transcript.NewFetcher(transcript.DefaultFetchOptions()).Load(ctx, args[0])
	if err != nil {
		return err
	}
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		doc.Format = transcript.Format(format)
	}
	cues, err := doc.Cues()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", doc.Source, err)
	}
	regions := transcript.ToRegions(cfg.Sync.TranscriptID, cues)
	log.Printf("Import: parsed %d cues from %s (%s)", len(cues), doc.Source, doc.Format)

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		for _, r := range regions {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %.3f-%.3f %q\n", r.ID, r.Start, r.End, r.PlainText())
		}
		return nil
	}

	c := newClient(cfg)
	created, skipped := 0, 0
	for _, r := range regions {
		if _, err := c.Create(ctx, r); err != nil {
			if apperrors.Is(err, apperrors.ErrCodeConflict) {
				skipped++
				continue
			}
			return fmt.Errorf("creating region %s: %w", r.ID, err)
		}
		created++
	}
	log.Printf("Import: created %d regions, skipped %d existing", created, skipped)
	return nil
}
