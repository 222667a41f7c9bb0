package recommend

import (
	"fmt"
	"sort"

	"github.com/tgienger/atm/internal/models"
)

// DefaultComplexityThreshold is the complexity above which a task should be split
const DefaultComplexityThreshold = 7

// maxParts caps the number of suggested subtasks
const maxParts = 5

// breakdownPhases are the suggested subtasks in the order they are handed out
var breakdownPhases = []string{"Design", "Implement", "Test", "Handle edge cases of", "Document"}

// ComplexityOptions selects the tasks to analyze
type ComplexityOptions struct {
	// TaskID analyzes a single task; empty analyzes every open task
	TaskID string
	// ProjectID limits the analysis to one project
	ProjectID string
	// Threshold is 1-10; 0 means DefaultComplexityThreshold
	Threshold int
	// SuggestBreakdown adds suggested subtask names to each finding
	SuggestBreakdown bool
}

// ComplexityReport summarizes the rated open tasks and lists those over the threshold
type ComplexityReport struct {
	Threshold int `json:"threshold"`
	// Analyzed counts open tasks with a complexity rating
	Analyzed int `json:"analyzed"`
	// Unrated counts open tasks without one
	Unrated  int                 `json:"unrated"`
	Average  float64             `json:"averageComplexity"`
	Findings []ComplexityFinding `json:"findings"`
}

// ComplexityFinding is a task rated above the threshold
type ComplexityFinding struct {
	Task       models.Task `json:"task"`
	Complexity int         `json:"complexity"`
	// Subtasks counts the task's direct children
	Subtasks    int      `json:"subtasks"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// AnalyzeComplexity reports the open tasks whose complexity is above the
// threshold, most complex first. Tasks that already have children get no
// suggestions.
func AnalyzeComplexity(tasks []models.Task, opts ComplexityOptions) (ComplexityReport, error) {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultComplexityThreshold
	}
	if opts.Threshold < 1 || opts.Threshold > 10 {
		return ComplexityReport{}, fmt.Errorf("%w: complexity threshold %d is outside 1-10", ErrInvalidOptions, opts.Threshold)
	}

	children := map[string]int{}
	found := opts.TaskID == ""
	for i := range tasks {
		if tasks[i].ParentID != "" {
			children[tasks[i].ParentID]++
		}
		if tasks[i].ID == opts.TaskID {
			found = true
		}
	}
	if !found {
		return ComplexityReport{}, fmt.Errorf("%w: task %q not found", ErrInvalidOptions, opts.TaskID)
	}

	report := ComplexityReport{Threshold: opts.Threshold, Findings: []ComplexityFinding{}}
	total := 0
	for i := range tasks {
		t := &tasks[i]
		if opts.TaskID != "" && t.ID != opts.TaskID {
			continue
		}
		if opts.ProjectID != "" && t.ProjectID != opts.ProjectID {
			continue
		}
		if done(t) {
			continue
		}
		if t.Complexity == nil {
			report.Unrated++
			continue
		}
		c := *t.Complexity
		report.Analyzed++
		total += c
		if c <= opts.Threshold {
			continue
		}

		f := ComplexityFinding{Task: t.Clone(), Complexity: c, Subtasks: children[t.ID]}
		if opts.SuggestBreakdown && f.Subtasks == 0 {
			f.Suggestions = breakdown(t.Name, c, opts.Threshold)
		}
		report.Findings = append(report.Findings, f)
	}
	if report.Analyzed > 0 {
		report.Average = float64(total) / float64(report.Analyzed)
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Complexity > report.Findings[j].Complexity
	})
	return report, nil
}

// breakdown names one subtask per phase; the further over the threshold, the more phases
func breakdown(name string, complexity, threshold int) []string {
	parts := min(complexity-threshold+2, maxParts)
	out := make([]string, parts)
	for i := range out {
		out[i] = breakdownPhases[i] + " " + name
	}
	return out
}
