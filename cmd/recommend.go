package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basescout/basescout/internal/data/db"
	"github.com/basescout/basescout/pkg/recommend"
)

func newRecommendCmd() *cobra.Command {
	var sizePreference recommend.SizePreference
	var securityLevel recommend.SecurityLevel = recommend.SecurityHigh

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank stored images against a set of requirements",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			language, err := cmd.Flags().GetString("language")
			if err != nil {
				return fmt.Errorf("%w: language: %w", errFlagRetrieval, err)
			}
			if language == "" {
				return fmt.Errorf("language %w", errRequiredFlagEmpty)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, sizePreference, securityLevel)
		},
	}

	cmd.Flags().StringP("language", "l", "", "Required language runtime (case-insensitive)")
	cmd.Flags().String("runtime-version", "", "Version constraint: exact, prefix, or semver range")
	cmd.Flags().StringSlice("packages", nil, "Packages that must be present by name")
	cmd.Flags().Var(&sizePreference, "size", "Size preference: minimal, balanced or full")
	cmd.Flags().Var(&securityLevel, "security", "Security level: basic, high or maximum")
	cmd.Flags().Int("max-critical", -1, "Ceiling on critical vulnerabilities (-1 means unlimited)")
	cmd.Flags().Int("max-high", -1, "Ceiling on high vulnerabilities (-1 means unlimited)")
	cmd.Flags().Int("max-total", -1, "Ceiling on total vulnerabilities (-1 means unlimited)")
	cmd.Flags().IntP("limit", "n", 5, "Maximum number of results")
	return cmd
}

func runRecommend(cmd *cobra.Command, sizePreference recommend.SizePreference, securityLevel recommend.SecurityLevel) error {
	ctx := commandContext(cmd)

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, settings)
	if err != nil {
		return err
	}

	language, _ := cmd.Flags().GetString("language")              //nolint:errcheck
	runtimeVersion, _ := cmd.Flags().GetString("runtime-version") //nolint:errcheck
	packages, _ := cmd.Flags().GetStringSlice("packages")         //nolint:errcheck
	limit, _ := cmd.Flags().GetInt("limit")                       //nolint:errcheck

	reqs := recommend.Requirements{
		Language:       language,
		Version:        runtimeVersion,
		Packages:       packages,
		SizePreference: sizePreference,
		SecurityLevel:  securityLevel,
		MaxCritical:    ceilingFlag(cmd, "max-critical"),
		MaxHigh:        ceilingFlag(cmd, "max-high"),
		MaxTotal:       ceilingFlag(cmd, "max-total"),
	}

	// The language filter cuts the candidate set down in the store;
	// the engine applies the remaining constraints.
	candidates, _, err := store.Query(ctx, db.QueryFilter{Language: language}, 1, queryPageSize)
	if err != nil {
		return err
	}

	engine := recommend.NewEngine(settings.SizeThresholds)
	ranked := engine.Recommend(reqs, candidates, limit)

	out, err := json.MarshalIndent(ranked, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render recommendations: %w", err)
	}
	cmd.Println(string(out))
	return nil
}

// queryPageSize bounds the candidate set fetched for ranking.
const queryPageSize = 1000

func ceilingFlag(cmd *cobra.Command, name string) *int {
	value, err := cmd.Flags().GetInt(name)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}
