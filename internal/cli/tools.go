package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"auxdeck/internal/catalog"
	"auxdeck/internal/tools"
)

var installForce bool

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage external tools",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsInstallCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List managed tool statuses",
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var statuses []tools.Status
	for _, name := range catalog.KnownTools() {
		statuses = append(statuses, a.installer.Status(name))
	}

	return printStatuses(cmd, statuses)
}

func newToolsInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [tool|all]",
		Short: "Install or update managed tools",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runToolsInstall,
	}

	cmd.Flags().BoolVar(&installForce, "force", false, "Reinstall even if the existing binary verifies")

	return cmd
}

func runToolsInstall(cmd *cobra.Command, args []string) error {
	target := "all"
	if len(args) == 1 {
		target = strings.ToLower(args[0])
	}

	known := catalog.KnownTools()
	var toInstall []string
	if target == "all" {
		toInstall = known
	} else {
		found := false
		for _, name := range known {
			if name == target {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown tool: %s", target)
		}
		toInstall = []string{target}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	var (
		statuses []tools.Status
		errs     []error
	)
	for _, name := range toInstall {
		if installForce {
			_, err = a.installer.Reinstall(ctx, name)
		} else {
			_, err = a.installer.EnsureInstalled(ctx, name)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		statuses = append(statuses, a.installer.Status(name))
	}

	if err := printStatuses(cmd, statuses); err != nil {
		return err
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func printStatuses(cmd *cobra.Command, statuses []tools.Status) error {
	if outputJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(statuses) == 0 {
		cmd.Println("(no tool statuses)")
		return nil
	}

	rows := make([]tools.Status, len(statuses))
	copy(rows, statuses)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Tool < rows[j].Tool
	})

	cmd.Printf("%-10s %-14s %-10s %-10s %s\n", "Tool", "Version", "Installed", "Verified", "Path")
	for _, st := range rows {
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		cmd.Printf("%-10s %-14s %-10s %-10s %s\n", st.Tool, orDash(st.Version), yesNo(st.Installed), yesNo(st.Verified), path)
		if st.Error != "" {
			cmd.Printf("  error: %s\n", st.Error)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
