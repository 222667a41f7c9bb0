package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgienger/atm/internal/storage"
)

// Flag names shared by the entity commands
const (
	flagID          = "id"
	flagName        = "name"
	flagDescription = "description"
	flagConfirm     = "confirm"
)

func newProjectsCmd(s *session) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			name, _ := cmd.Flags().GetString(flagName)
			description, _ := cmd.Flags().GetString(flagDescription)

			return s.withStorage(func(store *storage.Storage) error {
				project, err := store.Projects().Create(storage.ProjectDraft{
					ID:          id,
					Name:        name,
					Description: description,
				})
				if err != nil {
					return fmt.Errorf("error creating project: %w", err)
				}
				return printJSON(cmd, project)
			})
		},
	}
	createCmd.Flags().String(flagID, "", "Project id (generated when omitted)")
	createCmd.Flags().StringP(flagName, "n", "", "Project name")
	createCmd.Flags().StringP(flagDescription, "d", "", "Project description")
	markRequired(createCmd, flagName)

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			return s.withStorage(func(store *storage.Storage) error {
				project, err := store.Projects().Get(id)
				if err != nil {
					return fmt.Errorf("error getting project: %w", err)
				}
				return printJSON(cmd, project)
			})
		},
	}
	getCmd.Flags().String(flagID, "", "Project id")
	markRequired(getCmd, flagID)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withStorage(func(store *storage.Storage) error {
				return printJSON(cmd, store.Projects().List())
			})
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update a project's name or description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			var upd storage.ProjectUpdate
			if cmd.Flags().Changed(flagName) {
				name, _ := cmd.Flags().GetString(flagName)
				upd.Name = &name
			}
			if cmd.Flags().Changed(flagDescription) {
				description, _ := cmd.Flags().GetString(flagDescription)
				upd.Description = &description
			}

			return s.withStorage(func(store *storage.Storage) error {
				project, err := store.Projects().Update(id, upd)
				if err != nil {
					return fmt.Errorf("error updating project: %w", err)
				}
				return printJSON(cmd, project)
			})
		},
	}
	updateCmd.Flags().String(flagID, "", "Project id")
	updateCmd.Flags().StringP(flagName, "n", "", "New project name")
	updateCmd.Flags().StringP(flagDescription, "d", "", "New project description")
	markRequired(updateCmd, flagID)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a project and all of its tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			confirm, _ := cmd.Flags().GetBool(flagConfirm)
			return s.withStorage(func(store *storage.Storage) error {
				if err := store.Projects().Delete(id, confirm); err != nil {
					return fmt.Errorf("error deleting project: %w", err)
				}
				return printJSON(cmd, message{Message: fmt.Sprintf("project %s deleted", id)})
			})
		},
	}
	deleteCmd.Flags().String(flagID, "", "Project id")
	deleteCmd.Flags().Bool(flagConfirm, false, "Confirm the deletion")
	markRequired(deleteCmd, flagID)

	projectsCmd.AddCommand(createCmd, getCmd, listCmd, updateCmd, deleteCmd)
	return projectsCmd
}
