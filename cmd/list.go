package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackvault/artifactresolver/internal/catalog"
)

var listDoc bool

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List artifact definitions in the catalogue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listDoc, "doc", false, "print the generated markdown index instead of a flat list")
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := catalog.LoadDir(catalogueDir)
	if err != nil {
		return fmt.Errorf("loading catalogue: %w", err)
	}

	if listDoc {
		fmt.Println(reg.GenerateIndex())
		return nil
	}

	names := reg.Names()
	sort.Strings(names)

	var filter string
	if len(args) > 0 {
		filter = strings.ToLower(args[0])
	}
	for _, name := range names {
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		def, _ := reg.Get(name)
		fmt.Printf("%-40s  %s\n", name, strings.Join(def.Provides, ", "))
	}
	return nil
}
