package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basescout/basescout/internal/config"
	"github.com/basescout/basescout/pkg/scan"
)

func newScanReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan-repos",
		Short: "Scan every entry of a repository list file",
		Long: "scan-repos reads a newline-delimited repository list. Entries with an " +
			"explicit tag are scanned as single images; for the rest the --tags values " +
			"are scanned, up to --max-tags per repository.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("%w: file: %w", errFlagRetrieval, err)
			}
			if file == "" {
				return fmt.Errorf("file %w", errRequiredFlagEmpty)
			}
			return nil
		},
		RunE: runScanRepos,
	}
	cmd.Flags().StringP("file", "f", "", "Path to the repository list file")
	cmd.Flags().StringSlice("tags", nil, "Tags to scan for entries without an explicit tag")
	cmd.Flags().Int("max-tags", 0, "Tag count limit per repository (0 means no limit)")
	addScanFlags(cmd)
	return cmd
}

func runScanRepos(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")      //nolint:errcheck
	tags, _ := cmd.Flags().GetStringSlice("tags") //nolint:errcheck
	maxTags, _ := cmd.Flags().GetInt("max-tags")  //nolint:errcheck
	entries, err := config.LoadRepoList(file)
	if err != nil {
		return err
	}
	cleanupAuth, err := setupRegistryAuth(cmd)
	if err != nil {
		return err
	}
	defer cleanupAuth()

	store, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(ctx, settings, store)
	if err != nil {
		return err
	}
	opts, err := scanOptions(cmd, settings)
	if err != nil {
		return err
	}

	total := &scan.BatchResult{}
	for _, entry := range entries {
		entryTags := tags
		if entry.Tag != "" {
			entryTags = []string{entry.Tag}
		}
		if len(entryTags) == 0 {
			// Without this the entry would vanish from the summary and
			// read as clean.
			total.Failures = append(total.Failures, scan.Failure{
				Reference: entry.Path,
				Message:   "no tags to scan: entry has no tag and --tags is empty",
			})
			continue
		}
		if maxTags > 0 && len(entryTags) > maxTags {
			entryTags = entryTags[:maxTags]
		}
		result := orchestrator.ScanRepository(ctx, entry.Path, entryTags, opts)
		total.Records = append(total.Records, result.Records...)
		total.Failures = append(total.Failures, result.Failures...)
		if ctx.Err() != nil {
			break
		}
	}

	summary := struct {
		Scanned  int            `json:"scanned"`
		Failed   int            `json:"failed"`
		Failures []scan.Failure `json:"failures,omitempty"`
	}{
		Scanned:  len(total.Records),
		Failed:   len(total.Failures),
		Failures: total.Failures,
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render batch summary: %w", err)
	}
	cmd.Println(string(out))

	if len(total.Records) == 0 && len(total.Failures) > 0 {
		return fmt.Errorf("all %d image scans failed", len(total.Failures))
	}
	return nil
}

func scanOptions(cmd *cobra.Command, settings config.Settings) (scan.Options, error) {
	comprehensive, err := cmd.Flags().GetBool("comprehensive")
	if err != nil {
		return scan.Options{}, fmt.Errorf("%w: comprehensive: %w", errFlagRetrieval, err)
	}
	updateExisting, _ := cmd.Flags().GetBool("update-existing") //nolint:errcheck
	keepImages, _ := cmd.Flags().GetBool("keep-images")         //nolint:errcheck
	timeout, _ := cmd.Flags().GetDuration("timeout")            //nolint:errcheck
	if timeout <= 0 {
		timeout = settings.ScanTimeout
	}
	return scan.Options{
		Comprehensive:  comprehensive,
		UpdateExisting: updateExisting,
		KeepImages:     keepImages,
		Timeout:        timeout,
	}, nil
}
