package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/gtconfig"
	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/style"
)

var installName string

var installCmd = &cobra.Command{
	Use:     "install",
	GroupID: GroupServices,
	Short:   "Lay down a fresh town's directory layout and default config",
	Args:    cobra.NoArgs,
	RunE:    runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installName, "name", "town", "town name written to town.toml")
	rootCmd.AddCommand(installCmd)
}

// runInstall is idempotent: re-running it against an already-installed
// town only fills in whatever's missing, never overwriting an existing
// town.toml or rigs.toml.
func runInstall(cmd *cobra.Command, args []string) error {
	if err := gtdirs.EnsureBaseDirs(); err != nil {
		return fmt.Errorf("creating town directories: %w", err)
	}

	town, err := gtconfig.LoadTown()
	if err != nil {
		return fmt.Errorf("reading town.toml: %w", err)
	}
	if town.Name == "" {
		town.Name = installName
		if err := gtconfig.SaveTown(town); err != nil {
			return fmt.Errorf("writing town.toml: %w", err)
		}
	}

	if _, err := gtconfig.LoadRigs(); err != nil {
		return fmt.Errorf("reading rigs.toml: %w", err)
	}

	if _, err := gtconfig.LoadEscalation(); err != nil {
		return fmt.Errorf("reading escalation.toml: %w", err)
	}

	style.PrintSuccess("town %q installed at %s", town.Name, gtdirs.Root())
	return nil
}
