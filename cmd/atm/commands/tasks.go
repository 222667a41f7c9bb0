package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgienger/atm/internal/models"
	"github.com/tgienger/atm/internal/recommend"
	"github.com/tgienger/atm/internal/storage"
)

// Task flag names
const (
	flagProject          = "project"
	flagParent           = "parent"
	flagDetails          = "details"
	flagDependsOn        = "depends-on"
	flagPriority         = "priority"
	flagComplexity       = "complexity"
	flagStatus           = "status"
	flagCompleted        = "completed"
	flagTags             = "tags"
	flagHours            = "estimated-hours"
	flagRoots            = "roots"
	flagExcludeCompleted = "exclude-completed"
	flagHierarchical     = "hierarchical"
	flagTag              = "tag"
	flagMax              = "max"
	flagConsiderComplex  = "consider-complexity"
	flagPreferredTags    = "preferred-tags"
	flagExcludeBlocked   = "exclude-blocked"
	flagSuggestBreakdown = "suggest-breakdown"
)

func newTasksCmd(s *session) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks and their hierarchy",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task, optionally below a parent task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			draft := storage.TaskDraft{}
			draft.ID, _ = f.GetString(flagID)
			draft.Name, _ = f.GetString(flagName)
			draft.Details, _ = f.GetString(flagDetails)
			draft.ProjectID, _ = f.GetString(flagProject)
			draft.ParentID, _ = f.GetString(flagParent)
			draft.DependsOn, _ = f.GetStringSlice(flagDependsOn)
			draft.Tags, _ = f.GetStringSlice(flagTags)
			draft.Priority, _ = f.GetInt(flagPriority)
			draft.Completed, _ = f.GetBool(flagCompleted)
			status, _ := f.GetString(flagStatus)
			draft.Status = models.Status(status)
			if f.Changed(flagComplexity) {
				v, _ := f.GetInt(flagComplexity)
				draft.Complexity = &v
			}
			if f.Changed(flagHours) {
				v, _ := f.GetFloat64(flagHours)
				draft.EstimatedHours = &v
			}

			return s.withStorage(func(store *storage.Storage) error {
				task, err := store.Tasks().Create(draft)
				if err != nil {
					return fmt.Errorf("error creating task: %w", err)
				}
				return printJSON(cmd, task)
			})
		},
	}
	createCmd.Flags().String(flagID, "", "Task id (generated when omitted)")
	createCmd.Flags().StringP(flagName, "n", "", "Task name")
	createCmd.Flags().StringP(flagDetails, "d", "", "Task details")
	createCmd.Flags().StringP(flagProject, "p", "", "Project id")
	createCmd.Flags().String(flagParent, "", "Parent task id (omit for a root task)")
	createCmd.Flags().StringSlice(flagDependsOn, nil, "Ids of tasks this task depends on")
	createCmd.Flags().StringSlice(flagTags, nil, "Tags")
	createCmd.Flags().Int(flagPriority, models.DefaultPriority, "Priority 1-10")
	createCmd.Flags().Int(flagComplexity, 0, "Complexity 1-10")
	createCmd.Flags().String(flagStatus, "", "Status: pending, in-progress, blocked or done")
	createCmd.Flags().Bool(flagCompleted, false, "Create the task as completed")
	createCmd.Flags().Float64(flagHours, 0, "Estimated hours")
	markRequired(createCmd, flagName, flagProject)

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			return s.withStorage(func(store *storage.Storage) error {
				task, err := store.Tasks().Get(id)
				if err != nil {
					return fmt.Errorf("error getting task: %w", err)
				}
				return printJSON(cmd, task)
			})
		},
	}
	getCmd.Flags().String(flagID, "", "Task id")
	markRequired(getCmd, flagID)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			filter := storage.TaskFilter{}
			filter.ProjectID, _ = f.GetString(flagProject)
			filter.ExcludeCompleted, _ = f.GetBool(flagExcludeCompleted)
			filter.Hierarchical, _ = f.GetBool(flagHierarchical)
			filter.Tag, _ = f.GetString(flagTag)
			if roots, _ := f.GetBool(flagRoots); roots {
				if f.Changed(flagParent) {
					return fmt.Errorf("--%s and --%s are mutually exclusive", flagRoots, flagParent)
				}
				root := ""
				filter.ParentID = &root
			} else if f.Changed(flagParent) {
				parent, _ := f.GetString(flagParent)
				filter.ParentID = &parent
			}

			return s.withStorage(func(store *storage.Storage) error {
				tasks, err := store.Tasks().List(filter)
				if err != nil {
					return fmt.Errorf("error listing tasks: %w", err)
				}
				return printJSON(cmd, tasks)
			})
		},
	}
	listCmd.Flags().StringP(flagProject, "p", "", "Only tasks of this project")
	listCmd.Flags().String(flagParent, "", "Only direct children of this task")
	listCmd.Flags().Bool(flagRoots, false, "Only root tasks")
	listCmd.Flags().Bool(flagExcludeCompleted, false, "Leave out completed tasks")
	listCmd.Flags().Bool(flagHierarchical, false, "Order parents before their children")
	listCmd.Flags().String(flagTag, "", "Only tasks with a tag matching this glob pattern")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			id, _ := f.GetString(flagID)
			var upd storage.TaskUpdate
			if f.Changed(flagName) {
				v, _ := f.GetString(flagName)
				upd.Name = &v
			}
			if f.Changed(flagDetails) {
				v, _ := f.GetString(flagDetails)
				upd.Details = &v
			}
			if f.Changed(flagCompleted) {
				v, _ := f.GetBool(flagCompleted)
				upd.Completed = &v
			}
			if f.Changed(flagStatus) {
				v, _ := f.GetString(flagStatus)
				status := models.Status(v)
				upd.Status = &status
			}
			if f.Changed(flagPriority) {
				v, _ := f.GetInt(flagPriority)
				upd.Priority = &v
			}
			if f.Changed(flagComplexity) {
				v, _ := f.GetInt(flagComplexity)
				upd.Complexity = &v
			}
			if f.Changed(flagHours) {
				v, _ := f.GetFloat64(flagHours)
				upd.EstimatedHours = &v
			}
			if f.Changed(flagTags) {
				v, _ := f.GetStringSlice(flagTags)
				upd.Tags = append([]string{}, v...)
			}
			if f.Changed(flagDependsOn) {
				v, _ := f.GetStringSlice(flagDependsOn)
				upd.DependsOn = append([]string{}, v...)
			}

			return s.withStorage(func(store *storage.Storage) error {
				task, err := store.Tasks().Update(id, upd)
				if err != nil {
					return fmt.Errorf("error updating task: %w", err)
				}
				return printJSON(cmd, task)
			})
		},
	}
	updateCmd.Flags().String(flagID, "", "Task id")
	updateCmd.Flags().StringP(flagName, "n", "", "New name")
	updateCmd.Flags().StringP(flagDetails, "d", "", "New details")
	updateCmd.Flags().Bool(flagCompleted, false, "Mark completed (status follows)")
	updateCmd.Flags().String(flagStatus, "", "New status")
	updateCmd.Flags().Int(flagPriority, 0, "New priority 1-10")
	updateCmd.Flags().Int(flagComplexity, 0, "New complexity 1-10")
	updateCmd.Flags().Float64(flagHours, 0, "New estimated hours")
	updateCmd.Flags().StringSlice(flagTags, nil, "Replace the tags (pass an empty value to clear)")
	updateCmd.Flags().StringSlice(flagDependsOn, nil, "Replace the dependencies (pass an empty value to clear)")
	markRequired(updateCmd, flagID)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a task and every task below it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			confirm, _ := cmd.Flags().GetBool(flagConfirm)
			return s.withStorage(func(store *storage.Storage) error {
				if err := store.Tasks().Delete(id, confirm); err != nil {
					return fmt.Errorf("error deleting task: %w", err)
				}
				return printJSON(cmd, message{Message: fmt.Sprintf("task %s deleted", id)})
			})
		},
	}
	deleteCmd.Flags().String(flagID, "", "Task id")
	deleteCmd.Flags().Bool(flagConfirm, false, "Confirm the deletion")
	markRequired(deleteCmd, flagID)

	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Move a task below another parent, or to the root with an empty --parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			parent, _ := cmd.Flags().GetString(flagParent)
			return s.withStorage(func(store *storage.Storage) error {
				task, err := store.Tasks().Move(id, parent)
				if err != nil {
					return fmt.Errorf("error moving task: %w", err)
				}
				return printJSON(cmd, task)
			})
		},
	}
	moveCmd.Flags().String(flagID, "", "Task id")
	moveCmd.Flags().String(flagParent, "", "New parent task id; empty makes the task a root")
	markRequired(moveCmd, flagID)

	tasksCmd.AddCommand(createCmd, getCmd, listCmd, updateCmd, deleteCmd, moveCmd)
	tasksCmd.AddCommand(
		newTaskQueryCmd(s, "children", "List the direct children of a task", (*storage.TaskRepository).Children),
		newTaskQueryCmd(s, "ancestors", "List the ancestors of a task, root first", (*storage.TaskRepository).Ancestors),
		newTaskQueryCmd(s, "descendants", "List every task below a task", (*storage.TaskRepository).Descendants),
		newTaskTreeCmd(s),
		newTaskLevelCmd(s),
		newTaskNextCmd(s),
		newTaskAnalyzeCmd(s),
	)
	return tasksCmd
}

func newTaskLevelCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "level",
		Short: "Compute the depth of a task from its parent chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			return s.withStorage(func(store *storage.Storage) error {
				level, err := store.Tasks().ComputeLevel(id)
				if err != nil {
					return fmt.Errorf("error computing level: %w", err)
				}
				return printJSON(cmd, struct {
					ID    string `json:"id"`
					Level int    `json:"level"`
				}{id, level})
			})
		},
	}
	cmd.Flags().String(flagID, "", "Task id")
	markRequired(cmd, flagID)
	return cmd
}

// newTaskQueryCmd builds a read-only hierarchy command that lists tasks related to --id
func newTaskQueryCmd(s *session, use, short string, query func(*storage.TaskRepository, string) ([]models.Task, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString(flagID)
			return s.withStorage(func(store *storage.Storage) error {
				tasks, err := query(store.Tasks(), id)
				if err != nil {
					return fmt.Errorf("error getting %s: %w", use, err)
				}
				return printJSON(cmd, tasks)
			})
		},
	}
	cmd.Flags().String(flagID, "", "Task id")
	markRequired(cmd, flagID)
	return cmd
}

func newTaskTreeCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the task hierarchy of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, _ := cmd.Flags().GetString(flagProject)
			return s.withStorage(func(store *storage.Storage) error {
				tree, err := store.Tasks().Tree(projectID)
				if err != nil {
					return fmt.Errorf("error building task tree: %w", err)
				}
				return printJSON(cmd, tree)
			})
		},
	}
	cmd.Flags().StringP(flagProject, "p", "", "Project id")
	markRequired(cmd, flagProject)
	return cmd
}

func newTaskNextCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Recommend the next tasks to work on",
		Long: `Recommend open tasks whose dependencies are all done, ranked by
priority, complexity and preferred tags. Dependency cycles are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			opts := recommend.Options{}
			opts.ProjectID, _ = f.GetString(flagProject)
			opts.Max, _ = f.GetInt(flagMax)
			opts.ConsiderComplexity, _ = f.GetBool(flagConsiderComplex)
			opts.PreferredTags, _ = f.GetStringSlice(flagPreferredTags)
			opts.ExcludeBlocked, _ = f.GetBool(flagExcludeBlocked)

			return s.withStorage(func(store *storage.Storage) error {
				if opts.ProjectID != "" {
					if _, err := store.Projects().Get(opts.ProjectID); err != nil {
						return fmt.Errorf("error recommending tasks: %w", err)
					}
				}
				tasks, err := store.Tasks().List(storage.TaskFilter{})
				if err != nil {
					return fmt.Errorf("error listing tasks: %w", err)
				}
				result, err := recommend.Next(tasks, opts)
				if err != nil {
					return fmt.Errorf("error recommending tasks: %w", err)
				}
				return printJSON(cmd, result)
			})
		},
	}
	defaults := recommend.DefaultOptions()
	cmd.Flags().StringP(flagProject, "p", "", "Only recommend tasks of this project")
	cmd.Flags().Int(flagMax, defaults.Max, "Maximum number of recommendations (1-10)")
	cmd.Flags().Bool(flagConsiderComplex, defaults.ConsiderComplexity, "Favour less complex tasks")
	cmd.Flags().StringSlice(flagPreferredTags, nil, "Tag glob patterns to favour")
	cmd.Flags().Bool(flagExcludeBlocked, defaults.ExcludeBlocked, "Leave out blocked tasks")
	return cmd
}

func newTaskAnalyzeCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Find open tasks too complex to finish in one piece",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			opts := recommend.ComplexityOptions{}
			opts.TaskID, _ = f.GetString(flagID)
			opts.ProjectID, _ = f.GetString(flagProject)
			opts.Threshold, _ = f.GetInt(flagThreshold)
			opts.SuggestBreakdown, _ = f.GetBool(flagSuggestBreakdown)

			return s.withStorage(func(store *storage.Storage) error {
				if opts.TaskID != "" {
					if _, err := store.Tasks().Get(opts.TaskID); err != nil {
						return fmt.Errorf("error analyzing task: %w", err)
					}
				}
				tasks, err := store.Tasks().List(storage.TaskFilter{})
				if err != nil {
					return fmt.Errorf("error listing tasks: %w", err)
				}
				report, err := recommend.AnalyzeComplexity(tasks, opts)
				if err != nil {
					return fmt.Errorf("error analyzing complexity: %w", err)
				}
				return printJSON(cmd, report)
			})
		},
	}
	cmd.Flags().String(flagID, "", "Analyze only this task")
	cmd.Flags().StringP(flagProject, "p", "", "Only tasks of this project")
	cmd.Flags().Int(flagThreshold, recommend.DefaultComplexityThreshold, "Complexity (1-10) above which a task should be split")
	cmd.Flags().Bool(flagSuggestBreakdown, true, "Suggest subtasks for complex tasks")
	return cmd
}
