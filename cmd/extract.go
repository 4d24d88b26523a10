package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackvault/artifactresolver/internal/auditlog"
	"github.com/blackvault/artifactresolver/internal/catalog"
	"github.com/blackvault/artifactresolver/internal/driver"
	"github.com/blackvault/artifactresolver/internal/encryption"
	"github.com/blackvault/artifactresolver/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Resolve and export artifacts from mounted evidence",
	Long: `extract loads the artifact catalogue, mounts the given evidence path(s) as a
VFS, resolves every requested artifact against each non-shadow-copy
partition, and exports matched files and registry data to the output
store.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Bool("test-mode", false, "re-raise per-partition errors instead of logging and continuing")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	reg, err := catalog.LoadDir(catalogueDir)
	if err != nil {
		return fmt.Errorf("loading catalogue: %w", err)
	}
	log.Info("catalogue loaded", map[string]interface{}{"artifacts": len(reg.Names())})

	fs, err := openEvidence(evidence)
	if err != nil {
		return err
	}

	if keysFile != "" {
		creds, err := encryption.LoadKeysFile(keysFile)
		if err != nil {
			return fmt.Errorf("loading keys file: %w", err)
		}
		log.Info("credentials loaded", map[string]interface{}{"count": len(creds)})
	}

	cfg.OutputDir = outputDir
	if err := cfg.EnsureOutputDir(); err != nil {
		return err
	}
	jsonStore, err := store.Open(outputDir)
	if err != nil {
		return fmt.Errorf("opening output store: %w", err)
	}
	defer jsonStore.Close()

	var s store.Store = jsonStore
	audit, err := auditlog.Open(outputDir + "/chain-of-custody.jsonl")
	if err != nil {
		return fmt.Errorf("opening chain-of-custody log: %w", err)
	}
	defer audit.Close()
	s = store.WithAudit(jsonStore, audit)

	names := artifactArgs
	if len(names) == 0 {
		names = reg.Names()
	}

	testMode, _ := cmd.Flags().GetBool("test-mode")
	audit.RunStarted(catalogueDir, evidence, names)

	d := driver.New(fs, reg.Definitions(), openRegistry, s, cfg.ChecksumAlgorithm, log.Warnf, log.Infof)
	d.TestMode = testMode

	runErr := d.Run(ctx, names)
	audit.RunFinished(runErr)
	return runErr
}
