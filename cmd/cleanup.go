package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/workspace"
)

var (
	cleanupDays     int
	cleanupEntities bool
)

// cleanupCmd purges soft-deleted rows past their retention window.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup <workspace-path>",
	Short: "Physically purge soft-deleted tasks (and optionally entities)",
	Long: `Remove rows that were soft-deleted more than --days days ago from a
workspace store. This is irreversible; until then, soft-deleted rows
remain addressable by id for history.`,
	Args: cobra.ExactArgs(1),
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

		removed, err := st.CleanupTasks(cleanupDays)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d tasks deleted more than %d days ago.\n", removed, cleanupDays)

		if cleanupEntities {
			removedEntities, err := st.CleanupEntities(cleanupDays)
			if err != nil {
				return err
			}
			fmt.Printf("Purged %d entities deleted more than %d days ago.\n", removedEntities, cleanupDays)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "retention window in days")
	cleanupCmd.Flags().BoolVar(&cleanupEntities, "entities", false, "also purge soft-deleted entities")
}
