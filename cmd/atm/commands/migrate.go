package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgienger/atm/internal/config"
	"github.com/tgienger/atm/internal/storage"
)

// migrateOutput reports what opening the storage migrated, what is still
// stored and where it is stored
type migrateOutput struct {
	Migrated         storage.MigrationResult `json:"migrated"`
	Status           storage.MigrationStatus `json:"status"`
	WorkingDirectory workingDirectory        `json:"workingDirectory"`
	Backend          storage.BackendInfo     `json:"backend"`
}

type workingDirectory struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

func newMigrateCmd(s *session) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect the legacy subtask migration",
		Long: `Legacy flat subtasks are migrated into the task hierarchy whenever the
storage is opened. These commands report what was migrated and which
documents the configured backend holds.`,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Open the storage, migrating legacy data, and report the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withStorage(func(store *storage.Storage) error {
				status, err := store.MigrationStatus()
				if err != nil {
					return fmt.Errorf("error reading migration status: %w", err)
				}
				backend, err := store.BackendInfo()
				if err != nil {
					return fmt.Errorf("error inspecting storage backend: %w", err)
				}
				return printJSON(cmd, migrateOutput{
					Migrated: store.LastMigration(),
					Status:   status,
					WorkingDirectory: workingDirectory{
						Path:        store.Dir(),
						Description: config.WorkingDirectoryDescription(s.cfg),
					},
					Backend: backend,
				})
			})
		},
	}

	migrateCmd.AddCommand(statusCmd)
	return migrateCmd
}
