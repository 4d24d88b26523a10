package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackvault/artifactresolver/internal/catalog"
	"github.com/blackvault/artifactresolver/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell over the catalogue and mounted evidence",
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	reg, err := catalog.LoadDir(catalogueDir)
	if err != nil {
		return fmt.Errorf("loading catalogue: %w", err)
	}

	fs, err := openEvidence(evidence)
	if err != nil {
		return err
	}

	sh, err := shell.New(ctx, fs, reg, openRegistry)
	if err != nil {
		return err
	}
	return sh.Run(ctx)
}
