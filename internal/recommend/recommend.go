// Package recommend suggests which open task to work on next and flags tasks
// that are too complex to finish in one piece. It only reads tasks.
//
// A task is ready when it is open, has no open children and every task it
// depends on is completed. Ready tasks are ranked by priority, complexity,
// preferred tags and whether work on them has already started. Tasks that sit
// on a dependency cycle can never become ready; the cycles are reported so
// they can be fixed.
package recommend

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/tgienger/atm/internal/models"
)

// Defaults and bounds for Options
const (
	DefaultMax         = 3
	MaxRecommendations = 10
)

// Score weights
const (
	priorityWeight   = 10
	simplicityWeight = 3
	tagBonus         = 15
	inProgressBonus  = 20
	blockedPenalty   = 30
)

// ErrInvalidOptions is returned for out-of-range options or bad tag patterns
var ErrInvalidOptions = errors.New("invalid recommendation options")

// Options narrows and shapes a recommendation
type Options struct {
	// ProjectID limits candidates to one project; empty means every project
	ProjectID string
	// Max is the number of recommendations, 1-10; 0 means DefaultMax
	Max int
	// ConsiderComplexity favours simpler tasks
	ConsiderComplexity bool
	// PreferredTags are glob patterns; each one a task's tags match raises its score
	PreferredTags []string
	// ExcludeBlocked drops tasks whose status is blocked
	ExcludeBlocked bool
}

// DefaultOptions returns the options used when the caller sets nothing
func DefaultOptions() Options {
	return Options{Max: DefaultMax, ConsiderComplexity: true, ExcludeBlocked: true}
}

// Recommendation is one ready task and why it ranks where it does
type Recommendation struct {
	Task    models.Task `json:"task"`
	Score   int         `json:"score"`
	Reasons []string    `json:"reasons"`
}

// Result holds the ranked recommendations and what kept other open tasks out
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	// Ready counts every ready task, including those beyond Max
	Ready int `json:"ready"`
	// Waiting counts open tasks held back by unfinished or unknown dependencies
	Waiting int `json:"waiting"`
	// Cycles lists each dependency cycle as sorted task ids
	Cycles [][]string `json:"cycles"`
}

// Next ranks the ready tasks among tasks, best first. Dependencies are
// resolved against the whole slice, so tasks should hold every task the
// candidates may depend on. Ties keep the higher priority, then the older task.
func Next(tasks []models.Task, opts Options) (Result, error) {
	if opts.Max == 0 {
		opts.Max = DefaultMax
	}
	if opts.Max < 1 || opts.Max > MaxRecommendations {
		return Result{}, fmt.Errorf("%w: max %d is outside 1-%d", ErrInvalidOptions, opts.Max, MaxRecommendations)
	}
	preferred, err := compileTags(opts.PreferredTags)
	if err != nil {
		return Result{}, err
	}

	byID := make(map[string]*models.Task, len(tasks))
	openChildren := map[string]int{}
	for i := range tasks {
		t := &tasks[i]
		byID[t.ID] = t
		if t.ParentID != "" && !done(t) {
			openChildren[t.ParentID]++
		}
	}

	cycles := DependencyCycles(tasks)
	onCycle := map[string]bool{}
	for _, c := range cycles {
		for _, id := range c {
			onCycle[id] = true
		}
	}

	result := Result{Recommendations: []Recommendation{}, Cycles: cycles}
	for i := range tasks {
		t := &tasks[i]
		if opts.ProjectID != "" && t.ProjectID != opts.ProjectID {
			continue
		}
		if done(t) || openChildren[t.ID] > 0 || onCycle[t.ID] {
			continue
		}
		if opts.ExcludeBlocked && t.Status == models.StatusBlocked {
			continue
		}
		if !dependenciesMet(t, byID) {
			result.Waiting++
			continue
		}
		result.Recommendations = append(result.Recommendations, score(t, opts, preferred))
	}

	sort.SliceStable(result.Recommendations, func(i, j int) bool {
		a, b := result.Recommendations[i], result.Recommendations[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Task.Priority != b.Task.Priority {
			return a.Task.Priority > b.Task.Priority
		}
		return a.Task.CreatedAt.Before(b.Task.CreatedAt)
	})
	result.Ready = len(result.Recommendations)
	if len(result.Recommendations) > opts.Max {
		result.Recommendations = result.Recommendations[:opts.Max]
	}
	return result, nil
}

type tagPattern struct {
	text string
	glob glob.Glob
}

func compileTags(patterns []string) ([]tagPattern, error) {
	out := make([]tagPattern, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("%w: tag pattern %q: %v", ErrInvalidOptions, p, err)
		}
		out = append(out, tagPattern{text: p, glob: g})
	}
	return out, nil
}

func done(t *models.Task) bool {
	return t.Completed || t.Status == models.StatusDone
}

func dependenciesMet(t *models.Task, byID map[string]*models.Task) bool {
	for _, id := range t.DependsOn {
		dep, ok := byID[id]
		if !ok || !done(dep) {
			return false
		}
	}
	return true
}

func score(t *models.Task, opts Options, preferred []tagPattern) Recommendation {
	r := Recommendation{Task: t.Clone(), Score: t.Priority * priorityWeight}
	r.Reasons = append(r.Reasons, fmt.Sprintf("priority %d", t.Priority))

	if n := len(t.DependsOn); n > 0 {
		r.Reasons = append(r.Reasons, fmt.Sprintf("all %d dependencies done", n))
	}
	if t.Status == models.StatusInProgress {
		r.Score += inProgressBonus
		r.Reasons = append(r.Reasons, "already in progress")
	}
	if t.Status == models.StatusBlocked {
		r.Score -= blockedPenalty
		r.Reasons = append(r.Reasons, "marked blocked")
	}
	if opts.ConsiderComplexity && t.Complexity != nil {
		c := *t.Complexity
		r.Score += (models.MaxPriority + 1 - c) * simplicityWeight
		r.Reasons = append(r.Reasons, fmt.Sprintf("complexity %d", c))
		if c > DefaultComplexityThreshold {
			r.Reasons = append(r.Reasons, "complex, consider breaking it down")
		}
	}
	for _, p := range preferred {
		for _, tag := range t.Tags {
			if p.glob.Match(strings.ToLower(tag)) {
				r.Score += tagBonus
				r.Reasons = append(r.Reasons, fmt.Sprintf("matches preferred tag %q", p.text))
				break
			}
		}
	}
	return r
}

// DependencyCycles returns every group of tasks that depend on each other in
// a cycle, including a task that depends on itself. Dependencies on unknown
// ids are ignored. Each cycle is sorted; cycles are ordered by their first id.
func DependencyCycles(tasks []models.Task) [][]string {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}

	// Tarjan's strongly connected components
	var (
		counter  int
		order    = make([]int, len(tasks))
		low      = make([]int, len(tasks))
		onStack  = make([]bool, len(tasks))
		stack    []int
		cycles   = [][]string{}
		strongly func(v int)
	)
	for i := range order {
		order[i] = -1
	}

	strongly = func(v int) {
		order[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		selfLoop := false
		for _, id := range tasks[v].DependsOn {
			w, ok := index[id]
			if !ok {
				continue
			}
			if w == v {
				selfLoop = true
			}
			if order[w] < 0 {
				strongly(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], order[w])
			}
		}

		if low[v] != order[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, tasks[w].ID)
			if w == v {
				break
			}
		}
		if len(component) > 1 || selfLoop {
			sort.Strings(component)
			cycles = append(cycles, component)
		}
	}

	for v := range tasks {
		if order[v] < 0 {
			strongly(v)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
