package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"auxdeck/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and refresh the remote release catalog",
	}

	cmd.AddCommand(newCatalogShowCmd())
	cmd.AddCommand(newCatalogRefreshCmd())

	return cmd
}

func newCatalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the currently cached release catalog",
		RunE:  runCatalogShow,
	}
}

func runCatalogShow(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cat := a.cache.Get(cmd.Context())
	if cat == nil {
		cmd.Println("no remote catalog available; built-in releases apply")
		return nil
	}
	return printCatalog(cmd, cat)
}

func newCatalogRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the release catalog, bypassing the cache TTL",
		RunE:  runCatalogRefresh,
	}
}

func runCatalogRefresh(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.cache.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	return printCatalog(cmd, cat)
}

func printCatalog(cmd *cobra.Command, cat *catalog.Catalog) error {
	if outputJSON {
		data, err := json.MarshalIndent(cat, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("catalog version %d, generated %s\n\n", cat.CatalogVersion, cat.GeneratedAt.Format(time.RFC3339))

	toolNames := make([]string, 0, len(cat.Tools))
	for name := range cat.Tools {
		toolNames = append(toolNames, name)
	}
	sort.Strings(toolNames)

	cmd.Printf("%-10s %-14s %-14s %s\n", "Tool", "Platform", "Version", "Binary")
	for _, name := range toolNames {
		platforms := make([]string, 0, len(cat.Tools[name]))
		for platform := range cat.Tools[name] {
			platforms = append(platforms, platform)
		}
		sort.Strings(platforms)
		for _, platform := range platforms {
			rel := cat.Tools[name][platform]
			cmd.Printf("%-10s %-14s %-14s %s\n", name, platform, rel.Version, rel.BinaryFileName)
		}
	}
	return nil
}
