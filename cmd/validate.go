package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackvault/artifactresolver/internal/catalog"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate every catalogue YAML file against the artifact-definition schema",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir := catalogueDir
	if len(args) == 1 {
		dir = args[0]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading catalogue directory %q: %w", dir, err)
	}

	var failures int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("%s: FAIL (%v)\n", e.Name(), err)
			failures++
			continue
		}
		if err := catalog.ValidateFile(e.Name(), raw); err != nil {
			fmt.Printf("%s: FAIL (%v)\n", e.Name(), err)
			failures++
			continue
		}
		fmt.Printf("%s: OK\n", e.Name())
	}

	if failures > 0 {
		return fmt.Errorf("%d catalogue file(s) failed validation", failures)
	}
	return nil
}
