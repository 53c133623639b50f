package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/workspace"
)

// projectsCmd lists registered workspaces.
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List registered workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeAll, err := openServices()
		if err != nil {
			return err
		}
		defer closeAll()

		projects, err := svc.Registry.List()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No workspaces registered yet.")
			return nil
		}
		for _, p := range projects {
			name := p.FriendlyName
			if name == "" {
				name = "-"
			}
			fmt.Printf("%s  %-20s  %s  (last used %s)\n", p.ID, name, p.Path, p.LastAccessed.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

// projectsInfoCmd prints statistics for one workspace.
var projectsInfoCmd = &cobra.Command{
	Use:   "info <workspace-path>",
	Short: "Show task and entity statistics for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeAll, err := openServices()
		if err != nil {
			return err
		}
		defer closeAll()

		abs, err := workspace.Resolve(args[0])
		if err != nil {
			return err
		}
		id, err := svc.Registry.Register(abs)
		if err != nil {
			return err
		}
		st, err := svc.Stores.Get(id)
		if err != nil {
			return err
		}

		byStatus, err := st.CountTasksByStatus()
		if err != nil {
			return err
		}
		byType, err := st.CountEntitiesByType()
		if err != nil {
			return err
		}
		links, err := st.CountActiveLinks()
		if err != nil {
			return err
		}

		structure := workspace.DetectStructure(abs)

		fmt.Printf("Workspace %s (%s)\n", id, abs)
		fmt.Printf("Store: %s\n", st.Path())
		fmt.Printf("Layout: %s\n\n", structure.Layout)
		fmt.Println("Tasks by status:")
		for _, status := range []string{"todo", "in_progress", "blocked", "done", "cancelled"} {
			fmt.Printf("  %-12s %d\n", status, byStatus[status])
		}
		fmt.Println("Entities by type:")
		for _, entityType := range []string{"file", "other"} {
			fmt.Printf("  %-12s %d\n", entityType, byType[entityType])
		}
		fmt.Printf("Active links: %d\n", links)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsInfoCmd)
}
