package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/seqarc/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a ` + config.FileName + ` file with default settings to the current
directory. Commands run in this directory or below pick it up automatically.`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) {
	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}
	path := filepath.Join(cwd, config.FileName)

	// Check if already initialized
	if _, err := os.Stat(path); err == nil && !initForce {
		exitError("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		exitError("failed to write config: %v", err)
	}
	fmt.Printf("Wrote %s\n", path)
}
