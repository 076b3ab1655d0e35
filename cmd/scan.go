package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/basescout/basescout/internal/docker"
)

func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan <image-reference>",
		Short: "Scan one container image and store the record",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := exec.LookPath("syft"); err != nil {
				return fmt.Errorf("syft is not installed: %w", err)
			}
			comprehensive, err := cmd.Flags().GetBool("comprehensive")
			if err != nil {
				return fmt.Errorf("%w: comprehensive: %w", errFlagRetrieval, err)
			}
			if comprehensive {
				if _, trivyErr := exec.LookPath("trivy"); trivyErr != nil {
					if _, grypeErr := exec.LookPath("grype"); grypeErr != nil {
						return fmt.Errorf("comprehensive scan needs trivy or grype: %w", trivyErr)
					}
				}
			}
			return nil
		},
		RunE: runScan,
	}
	addScanFlags(scanCmd)
	return scanCmd
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("comprehensive", "c", false, "Run the vulnerability scanners, not just the SBOM")
	cmd.Flags().Bool("update-existing", false, "Replace the stored record when the digest is already known")
	cmd.Flags().Bool("keep-images", false, "Skip removing locally pulled images after the scan")
	cmd.Flags().Duration("timeout", 0, "Per-image scan timeout (0 uses the settings value)")
	cmd.Flags().StringSlice("registry-creds", nil,
		"Private registry credentials as registry:username:password")
}

// setupRegistryAuth writes a temporary Docker config for the given
// credentials and points DOCKER_CONFIG at it so the scan tools can pull
// from private registries. The returned cleanup removes the directory.
func setupRegistryAuth(cmd *cobra.Command) (func(), error) {
	creds, err := cmd.Flags().GetStringSlice("registry-creds")
	if err != nil {
		return nil, fmt.Errorf("%w: registry-creds: %w", errFlagRetrieval, err)
	}
	parsed := docker.ParseCredentials(creds)
	if len(parsed) == 0 {
		return func() {}, nil
	}
	configText, err := docker.GenerateConfigText(docker.CredentialsMap(parsed))
	if err != nil {
		return nil, err
	}
	configPath, err := docker.WriteConfigToTempDir(configText)
	if err != nil {
		return nil, err
	}
	configDir := filepath.Dir(configPath)
	previous, hadPrevious := os.LookupEnv("DOCKER_CONFIG")
	if err := os.Setenv("DOCKER_CONFIG", configDir); err != nil {
		return nil, fmt.Errorf("failed to set DOCKER_CONFIG: %w", err)
	}
	return func() {
		if hadPrevious {
			os.Setenv("DOCKER_CONFIG", previous) //nolint:errcheck
		} else {
			os.Unsetenv("DOCKER_CONFIG") //nolint:errcheck
		}
		os.RemoveAll(configDir) //nolint:errcheck
	}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	settings, err := loadSettings(cmd)
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
	image, err := orchestrator.ScanImage(ctx, args[0], opts)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(image, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render scan result: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
