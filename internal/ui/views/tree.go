package views

import (
	"strings"

	"github.com/tgienger/atm/internal/models"
)

// treeRow is one visible line of the task tree
type treeRow struct {
	task      models.Task
	depth     int
	guide     string // box-drawing prefix connecting the row to its parent
	children  int    // visible direct children, including collapsed ones
	collapsed bool
}

// flattenTree lists the visible tasks of a forest in display order.
// Children of collapsed tasks are skipped. With hideCompleted set, a
// completed task is only kept while one of its descendants is still open.
func flattenTree(nodes []*models.TaskNode, collapsed map[string]bool, hideCompleted bool) []treeRow {
	var rows []treeRow
	var walk func(nodes []*models.TaskNode, depth int, lasts []bool)
	walk = func(nodes []*models.TaskNode, depth int, lasts []bool) {
		shown := visibleNodes(nodes, hideCompleted)
		for i, n := range shown {
			last := i == len(shown)-1
			kids := visibleNodes(n.Children, hideCompleted)
			row := treeRow{
				task:      n.Task,
				depth:     depth,
				guide:     treeGuide(lasts, last, depth),
				children:  len(kids),
				collapsed: collapsed[n.Task.ID] && len(kids) > 0,
			}
			rows = append(rows, row)
			if !row.collapsed {
				walk(kids, depth+1, append(lasts, last))
			}
		}
	}
	walk(nodes, 0, nil)
	return rows
}

func visibleNodes(nodes []*models.TaskNode, hideCompleted bool) []*models.TaskNode {
	if !hideCompleted {
		return nodes
	}
	out := make([]*models.TaskNode, 0, len(nodes))
	for _, n := range nodes {
		if hasOpenWork(n) {
			out = append(out, n)
		}
	}
	return out
}

func hasOpenWork(n *models.TaskNode) bool {
	if !n.Task.Completed {
		return true
	}
	for _, c := range n.Children {
		if hasOpenWork(c) {
			return true
		}
	}
	return false
}

// treeGuide draws the connector for a row; lasts[i] records whether the
// ancestor at depth i was the last of its siblings
func treeGuide(lasts []bool, last bool, depth int) string {
	if depth == 0 {
		return ""
	}
	var b strings.Builder
	for _, ancestorLast := range lasts[1:] {
		if ancestorLast {
			b.WriteString("   ")
		} else {
			b.WriteString("│  ")
		}
	}
	if last {
		b.WriteString("└─ ")
	} else {
		b.WriteString("├─ ")
	}
	return b.String()
}

// treeStats counts every task of the forest and the completed ones
func treeStats(nodes []*models.TaskNode) (total, done int) {
	for _, root := range nodes {
		root.Walk(func(n *models.TaskNode) {
			total++
			if n.Task.Completed {
				done++
			}
		})
	}
	return total, done
}

// rowIndex returns the position of the task in rows, or -1
func rowIndex(rows []treeRow, id string) int {
	for i, r := range rows {
		if r.task.ID == id {
			return i
		}
	}
	return -1
}

// previousSibling finds the closest earlier row sharing the parent of rows[i]
func previousSibling(rows []treeRow, i int) (treeRow, bool) {
	if i <= 0 || i >= len(rows) {
		return treeRow{}, false
	}
	depth := rows[i].depth
	for j := i - 1; j >= 0; j-- {
		switch {
		case rows[j].depth < depth:
			return treeRow{}, false
		case rows[j].depth == depth:
			return rows[j], true
		}
	}
	return treeRow{}, false
}

// parseTags splits a comma separated tag list
func parseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
