package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgienger/atm/internal/models"
	"github.com/tgienger/atm/internal/search"
	"github.com/tgienger/atm/internal/storage"
)

// Memory flag names
const (
	flagTitle     = "title"
	flagContent   = "content"
	flagCategory  = "category"
	flagMetadata  = "metadata"
	flagLimit     = "limit"
	flagThreshold = "threshold"
)

// Listing bounds
const (
	defaultMemoryListLimit = 50
	maxMemoryListLimit     = 1000
)

func newMemoriesCmd(s *session) *cobra.Command {
	memoriesCmd := &cobra.Command{
		Use:   "memories",
		Short: "Manage memories",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Store a new memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			draft := storage.MemoryDraft{}
			draft.ID, _ = f.GetString(flagID)
			draft.Title, _ = f.GetString(flagTitle)
			draft.Content, _ = f.GetString(flagContent)
			draft.Category, _ = f.GetString(flagCategory)
			raw, _ := f.GetString(flagMetadata)
			meta, err := parseMetadata(raw)
			if err != nil {
				return err
			}
			draft.Metadata = meta

			return s.withStorage(func(store *storage.Storage) error {
				memory, err := store.Memories().Create(draft)
				if err != nil {
					return fmt.Errorf("error creating memory: %w", err)
				}
				return printJSON(cmd, memory)
			})
		},
	}
	createCmd.Flags().String(flagID, "", "Memory id (generated when omitted)")
	createCmd.Flags().StringP(flagTitle, "t", "", "Short title, ideally at most 50 characters")
	createCmd.Flags().StringP(flagContent, "c", "", "Memory content")
	createCmd.Flags().String(flagCategory, "", "Category")
	createCmd.Flags().String(flagMetadata, "", "Metadata as a JSON object")
	markRequired(createCmd, flagTitle, flagContent)

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			return s.withStorage(func(store *storage.Storage) error {
				memory, err := store.Memories().Get(id)
				if err != nil {
					return fmt.Errorf("error getting memory: %w", err)
				}
				return printJSON(cmd, memory)
			})
		},
	}
	getCmd.Flags().String(flagID, "", "Memory id")
	markRequired(getCmd, flagID)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, _ := cmd.Flags().GetString(flagCategory)
			limit, _ := cmd.Flags().GetInt(flagLimit)
			if limit < 1 || limit > maxMemoryListLimit {
				return fmt.Errorf("--%s must be between 1 and %d", flagLimit, maxMemoryListLimit)
			}
			return s.withStorage(func(store *storage.Storage) error {
				return printJSON(cmd, store.Memories().List(storage.MemoryFilter{Category: category, Limit: limit}))
			})
		},
	}
	listCmd.Flags().String(flagCategory, "", "Only memories in this category")
	listCmd.Flags().Int(flagLimit, defaultMemoryListLimit, "Maximum number of memories")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update a memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			id, _ := f.GetString(flagID)
			var upd storage.MemoryUpdate
			if f.Changed(flagTitle) {
				v, _ := f.GetString(flagTitle)
				upd.Title = &v
			}
			if f.Changed(flagContent) {
				v, _ := f.GetString(flagContent)
				upd.Content = &v
			}
			if f.Changed(flagCategory) {
				v, _ := f.GetString(flagCategory)
				upd.Category = &v
			}
			if f.Changed(flagMetadata) {
				raw, _ := f.GetString(flagMetadata)
				meta, err := parseMetadata(raw)
				if err != nil {
					return err
				}
				if meta == nil {
					meta = map[string]models.MetadataValue{}
				}
				upd.Metadata = meta
			}

			return s.withStorage(func(store *storage.Storage) error {
				memory, err := store.Memories().Update(id, upd)
				if err != nil {
					return fmt.Errorf("error updating memory: %w", err)
				}
				return printJSON(cmd, memory)
			})
		},
	}
	updateCmd.Flags().String(flagID, "", "Memory id")
	updateCmd.Flags().StringP(flagTitle, "t", "", "New title")
	updateCmd.Flags().StringP(flagContent, "c", "", "New content")
	updateCmd.Flags().String(flagCategory, "", "New category")
	updateCmd.Flags().String(flagMetadata, "", "Replacement metadata as a JSON object")
	markRequired(updateCmd, flagID)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			confirm, _ := cmd.Flags().GetBool(flagConfirm)
			return s.withStorage(func(store *storage.Storage) error {
				if err := store.Memories().Delete(id, confirm); err != nil {
					return fmt.Errorf("error deleting memory: %w", err)
				}
				return printJSON(cmd, message{Message: fmt.Sprintf("memory %s deleted", id)})
			})
		},
	}
	deleteCmd.Flags().String(flagID, "", "Memory id")
	deleteCmd.Flags().Bool(flagConfirm, false, "Confirm the deletion")
	markRequired(deleteCmd, flagID)

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memories by title, content, category and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			opts := search.Options{}
			opts.Category, _ = f.GetString(flagCategory)
			opts.Limit, _ = f.GetInt(flagLimit)
			opts.Threshold, _ = f.GetFloat64(flagThreshold)

			return s.withStorage(func(store *storage.Storage) error {
				results, err := search.Memories(store.Memories().List(storage.MemoryFilter{}), args[0], opts)
				if err != nil {
					return fmt.Errorf("error searching memories: %w", err)
				}
				return printJSON(cmd, results)
			})
		},
	}
	searchCmd.Flags().String(flagCategory, "", "Only memories in this category")
	searchCmd.Flags().Int(flagLimit, search.DefaultLimit, "Maximum number of results")
	searchCmd.Flags().Float64(flagThreshold, search.DefaultThreshold, "Minimum relevance 0-1")

	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withStorage(func(store *storage.Storage) error {
				return printJSON(cmd, store.Memories().Categories())
			})
		},
	}

	memoriesCmd.AddCommand(createCmd, getCmd, listCmd, updateCmd, deleteCmd, searchCmd, categoriesCmd)
	return memoriesCmd
}

// parseMetadata decodes a JSON object flag; an empty value yields nil
func parseMetadata(raw string) (map[string]models.MetadataValue, error) {
	if raw == "" {
		return nil, nil
	}
	var meta map[string]models.MetadataValue
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flagMetadata, err)
	}
	return meta, nil
}
