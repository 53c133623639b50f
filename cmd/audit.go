package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/internal/audit"
	"github.com/taskmesh/taskmesh/internal/workspace"
)

var (
	auditIncludeDeleted bool
	auditCheckGit       bool
)

// auditCmd runs the contamination scan from the command line.
var auditCmd = &cobra.Command{
	Use:   "audit <workspace-path>",
	Short: "Scan a workspace for cross-project contamination",
	Long: `Run the workspace integrity checks: file references and entity
identifiers outside the workspace root, suspicious tags, path leakage
in descriptions, and (with --git) git repository-root mismatches.
Prints the full report as JSON.`,
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

		report, err := svc.Audit.Run(cmd.Context(), st, abs, audit.Options{
			IncludeDeleted: auditIncludeDeleted,
			CheckGitRepo:   auditCheckGit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if report.ContaminationFound {
			return fmt.Errorf("contamination found: %d items (%.1f%%)", report.ContaminatedItems, report.ContaminationPercentage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditIncludeDeleted, "include-deleted", false, "also scan soft-deleted rows")
	auditCmd.Flags().BoolVar(&auditCheckGit, "git", false, "verify git repository-root consistency")
}
