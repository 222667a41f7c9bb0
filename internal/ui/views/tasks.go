package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/atm/internal/models"
	"github.com/tgienger/atm/internal/storage"
	"github.com/tgienger/atm/internal/ui/keys"
	"github.com/tgienger/atm/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// Edit form fields in focus order
const (
	editFieldName = iota
	editFieldDetails
	editFieldPriority
	editFieldTags
	editFieldSave
	editFieldCount
)

// TaskListView shows the task tree of a project
type TaskListView struct {
	store   *storage.Storage
	project models.Project
	nodes   []*models.TaskNode
	rows    []treeRow
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	cursor    int
	scrollY   int
	collapsed map[string]bool
	selectID  string // row to select after the next reload
	err       error

	// Task creation/editing
	editing      bool
	editingNew   bool
	editParentID string
	editName     textinput.Model
	editDetails  textarea.Model
	editPriority textinput.Model
	editTags     textinput.Model
	editFocusIdx int

	// Task view mode (read-only detail view)
	viewingTask   bool
	viewAncestors []models.Task

	// Delete confirmation
	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string
	deleteSubtasks   int

	showingCompleted bool

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewTaskListView creates a new task tree view
func NewTaskListView(store *storage.Storage, project models.Project) *TaskListView {
	editName := textinput.New()
	editName.Placeholder = "Task name"
	editName.CharLimit = 200

	editDetails := textarea.New()
	editDetails.Placeholder = "Details"
	editDetails.CharLimit = 5000
	editDetails.SetWidth(50)
	editDetails.SetHeight(4)
	editDetails.ShowLineNumbers = false

	editPriority := textinput.New()
	editPriority.Placeholder = "1-10"
	editPriority.CharLimit = 2

	editTags := textinput.New()
	editTags.Placeholder = "comma,separated"
	editTags.CharLimit = 200

	return &TaskListView{
		store:        store,
		project:      project,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		collapsed:    make(map[string]bool),
		editName:     editName,
		editDetails:  editDetails,
		editPriority: editPriority,
		editTags:     editTags,
	}
}

// BackToProjects signals to go back to project list
type BackToProjects struct{}

// Init initializes the view
func (v *TaskListView) Init() tea.Cmd {
	return v.loadTasks
}

type tasksLoadedMsg struct {
	nodes []*models.TaskNode
}

type errMsg struct {
	err error
}

func (v *TaskListView) loadTasks() tea.Msg {
	nodes, err := v.store.Tasks().Tree(v.project.ID)
	if err != nil {
		return errMsg{err: err}
	}
	return tasksLoadedMsg{nodes: nodes}
}

// selected returns the task under the cursor
func (v *TaskListView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return models.Task{}, false
	}
	return v.rows[v.cursor].task, true
}

// refresh rebuilds the visible rows, keeping the cursor on the same task
func (v *TaskListView) refresh() {
	current := v.selectID
	if current == "" {
		if t, ok := v.selected(); ok {
			current = t.ID
		}
	}
	v.selectID = ""

	v.rows = flattenTree(v.nodes, v.collapsed, !v.showingCompleted)
	if i := rowIndex(v.rows, current); i >= 0 {
		v.cursor = i
	}
	if v.cursor >= len(v.rows) {
		v.cursor = max(0, len(v.rows)-1)
	}
	v.ensureVisible()
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.editDetails.SetWidth(clamp(contentWidth-10, 20, 50))
		v.ensureVisible()
		return v, nil

	case tasksLoadedMsg:
		v.nodes = msg.nodes
		v.refresh()
		return v, nil

	case errMsg:
		v.err = msg.err
		return v, nil

	case tea.KeyMsg:
		// Any key closes the help popup
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.editing {
			return v.updateEditing(msg)
		}

		v.err = nil

		if v.viewingTask {
			return v.updateViewingTask(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task, hasTask := v.selected()

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToProjects{} }

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.rows)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Collapse):
		if !hasTask {
			return v, nil
		}
		row := v.rows[v.cursor]
		if row.children > 0 && !row.collapsed {
			v.collapsed[task.ID] = true
			v.refresh()
		} else if !task.IsRoot() {
			// jump to the parent
			if i := rowIndex(v.rows, task.ParentID); i >= 0 {
				v.cursor = i
				v.ensureVisible()
			}
		}
		return v, nil

	case key.Matches(msg, v.keys.Expand):
		if hasTask && v.collapsed[task.ID] {
			delete(v.collapsed, task.ID)
			v.refresh()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if hasTask {
			v.viewingTask = true
			v.viewAncestors, _ = v.store.Tasks().Ancestors(task.ID)
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.startNewTask("")
		return v, textinput.Blink

	case key.Matches(msg, v.keys.NewChild):
		if !hasTask {
			return v, nil
		}
		delete(v.collapsed, task.ID)
		v.startNewTask(task.ID)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		if hasTask {
			v.startEditTask(task)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if hasTask {
			v.startDelete(task)
		}
		return v, nil

	case key.Matches(msg, v.keys.Toggle):
		if hasTask {
			return v, v.toggleCompleted(task)
		}
		return v, nil

	case key.Matches(msg, v.keys.Status):
		if hasTask {
			return v, v.cycleStatus(task)
		}
		return v, nil

	case key.Matches(msg, v.keys.Indent):
		if sibling, ok := previousSibling(v.rows, v.cursor); ok {
			delete(v.collapsed, sibling.task.ID)
			return v, v.moveTask(task, sibling.task.ID)
		}
		return v, nil

	case key.Matches(msg, v.keys.Outdent):
		if !hasTask || task.IsRoot() {
			return v, nil
		}
		parent, err := v.store.Tasks().Get(task.ParentID)
		if err != nil {
			v.err = err
			return v, nil
		}
		return v, v.moveTask(task, parent.ParentID)

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.ShowCompleted):
		v.showingCompleted = !v.showingCompleted
		v.refresh()
		return v, nil
	}

	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		v.viewingTask = false
		if err := v.store.Tasks().Delete(v.deleteTargetID, true); err != nil {
			v.err = err
			return v, nil
		}
		return v, v.loadTasks
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateViewingTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task, ok := v.selected()
	if !ok {
		v.viewingTask = false
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.viewingTask = false
		return v, nil
	case key.Matches(msg, v.keys.Edit):
		v.viewingTask = false
		v.startEditTask(task)
		return v, textinput.Blink
	case key.Matches(msg, v.keys.NewChild):
		v.viewingTask = false
		delete(v.collapsed, task.ID)
		v.startNewTask(task.ID)
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Delete):
		v.startDelete(task)
		return v, nil
	case key.Matches(msg, v.keys.Toggle):
		return v, v.toggleCompleted(task)
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	}
	return v, nil
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		v.err = nil
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % editFieldCount
		v.updateEditFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.editFocusIdx = (v.editFocusIdx + editFieldCount - 1) % editFieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.editFocusIdx {
		case editFieldName, editFieldPriority, editFieldTags:
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		case editFieldSave:
			return v, v.saveTask()
		}
		// enter inserts a newline in the details textarea
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case editFieldName:
		v.editName, cmd = v.editName.Update(msg)
	case editFieldDetails:
		v.editDetails, cmd = v.editDetails.Update(msg)
	case editFieldPriority:
		v.editPriority, cmd = v.editPriority.Update(msg)
	case editFieldTags:
		v.editTags, cmd = v.editTags.Update(msg)
	}
	return v, cmd
}

func (v *TaskListView) ensureVisible() {
	visibleItems := v.visibleRows()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

// visibleRows is the number of tree rows that fit below the header
func (v *TaskListView) visibleRows() int {
	return max(v.height-9, 1)
}

func (v *TaskListView) startNewTask(parentID string) {
	v.editing = true
	v.editingNew = true
	v.editParentID = parentID
	v.editFocusIdx = editFieldName
	v.editName.Reset()
	v.editDetails.Reset()
	v.editPriority.SetValue(strconv.Itoa(models.DefaultPriority))
	v.editTags.Reset()
	v.updateEditFocus()
}

func (v *TaskListView) startEditTask(task models.Task) {
	v.editing = true
	v.editingNew = false
	v.editParentID = task.ParentID
	v.editFocusIdx = editFieldName
	v.editName.SetValue(task.Name)
	v.editDetails.SetValue(task.Details)
	v.editPriority.SetValue(strconv.Itoa(task.Priority))
	v.editTags.SetValue(strings.Join(task.Tags, ", "))
	v.updateEditFocus()
}

func (v *TaskListView) updateEditFocus() {
	v.editName.Blur()
	v.editDetails.Blur()
	v.editPriority.Blur()
	v.editTags.Blur()

	switch v.editFocusIdx {
	case editFieldName:
		v.editName.Focus()
	case editFieldDetails:
		v.editDetails.Focus()
	case editFieldPriority:
		v.editPriority.Focus()
	case editFieldTags:
		v.editTags.Focus()
	}
}

// saveTask stores the form; on a validation error the form stays open with the message
func (v *TaskListView) saveTask() tea.Cmd {
	name := strings.TrimSpace(v.editName.Value())
	if name == "" {
		v.err = fmt.Errorf("task name is required")
		return nil
	}

	priority := 0
	if raw := strings.TrimSpace(v.editPriority.Value()); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			v.err = fmt.Errorf("priority must be a number")
			return nil
		}
		priority = p
	}
	details := strings.TrimSpace(v.editDetails.Value())
	tags := parseTags(v.editTags.Value())

	var (
		task *models.Task
		err  error
	)
	if v.editingNew {
		task, err = v.store.Tasks().Create(storage.TaskDraft{
			Name:      name,
			Details:   details,
			ProjectID: v.project.ID,
			ParentID:  v.editParentID,
			Priority:  priority,
			Tags:      tags,
		})
	} else if current, ok := v.selected(); ok {
		upd := storage.TaskUpdate{Name: &name, Details: &details, Tags: tags}
		if priority != 0 {
			upd.Priority = &priority
		}
		task, err = v.store.Tasks().Update(current.ID, upd)
	}
	if err != nil {
		v.err = err
		return nil
	}

	v.editing = false
	v.err = nil
	if task != nil {
		v.selectID = task.ID
	}
	return v.loadTasks
}

func (v *TaskListView) startDelete(task models.Task) {
	v.confirmingDelete = true
	v.deleteTargetID = task.ID
	v.deleteTargetName = task.Name
	v.deleteSubtasks = 0
	if descendants, err := v.store.Tasks().Descendants(task.ID); err == nil {
		v.deleteSubtasks = len(descendants)
	}
}

func (v *TaskListView) toggleCompleted(task models.Task) tea.Cmd {
	completed := !task.Completed
	if _, err := v.store.Tasks().Update(task.ID, storage.TaskUpdate{Completed: &completed}); err != nil {
		v.err = err
		return nil
	}
	return v.loadTasks
}

func (v *TaskListView) cycleStatus(task models.Task) tea.Cmd {
	next := nextStatus(task.Status)
	if _, err := v.store.Tasks().Update(task.ID, storage.TaskUpdate{Status: &next}); err != nil {
		v.err = err
		return nil
	}
	return v.loadTasks
}

func (v *TaskListView) moveTask(task models.Task, parentID string) tea.Cmd {
	if _, err := v.store.Tasks().Move(task.ID, parentID); err != nil {
		v.err = err
		return nil
	}
	v.selectID = task.ID
	return v.loadTasks
}

// nextStatus returns the status following s in display order
func nextStatus(s models.Status) models.Status {
	for i, status := range models.Statuses {
		if status == s {
			return models.Statuses[(i+1)%len(models.Statuses)]
		}
	}
	return models.StatusPending
}

// View renders the view
func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.editing {
		return v.renderEditForm()
	}

	if v.viewingTask {
		return v.renderTaskView()
	}

	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(v.renderTaskTree())

	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render(v.err.Error()))
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles

	total, done := treeStats(v.nodes)
	summary := fmt.Sprintf("%d tasks • %d done", total, done)
	if v.showingCompleted {
		summary += " • showing completed"
	}

	title := s.Title.Render(v.project.Name)
	if v.project.Description != "" {
		title = lipgloss.JoinVertical(lipgloss.Left, title, s.TitleMuted.Render(v.project.Description))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, s.TitleMuted.Render(summary))
}

func (v *TaskListView) renderTaskTree() string {
	s := v.styles

	if len(v.rows) == 0 {
		if len(v.nodes) > 0 {
			return s.TitleMuted.Render("All tasks are done. Press 'c' to show them.")
		}
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleRows(), len(v.rows))
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskRow(v.rows[i], i == v.cursor))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskRow(row treeRow, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)
	task := row.task

	fold := "  "
	if row.children > 0 {
		fold = "▾ "
		if row.collapsed {
			fold = "▸ "
		}
	}

	name := task.Name
	if task.Completed && !selected {
		name = s.TaskDone.Render(name)
	}

	line := s.TreeGuide.Render(row.guide) + fold + styles.StatusBadge(task.Status) + " " + name
	if task.Priority != models.DefaultPriority {
		line += " " + s.TaskPriority.Render(fmt.Sprintf("[%d]", task.Priority))
	}
	if row.collapsed {
		line += s.TitleMuted.Render(fmt.Sprintf(" (+%d)", row.children))
	}
	if len(task.Tags) > 0 {
		line += " " + s.Tag.Render("#"+strings.Join(task.Tags, " #"))
	}

	if selected {
		return s.ListSelected.Width(width).Render(line)
	}
	return s.ListItem.Width(width).Render(line)
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if !v.editingNew {
		formTitle = "Edit Task"
	}
	subtitle := "at the root of " + v.project.Name
	if v.editParentID != "" {
		if parent, err := v.store.Tasks().Get(v.editParentID); err == nil {
			subtitle = "under " + parent.Name
		}
	}

	nameStyle := s.Input
	detailsStyle := s.Input
	priorityStyle := s.Input
	tagsStyle := s.Input
	btnStyle := s.Button

	switch v.editFocusIdx {
	case editFieldName:
		nameStyle = s.InputFocused
	case editFieldDetails:
		detailsStyle = s.InputFocused
	case editFieldPriority:
		priorityStyle = s.InputFocused
	case editFieldTags:
		tagsStyle = s.InputFocused
	case editFieldSave:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	rows := []string{
		s.Title.Render(formTitle),
		s.TitleMuted.Render(subtitle),
		"",
		"Name:",
		nameStyle.Width(inputWidth).Render(v.editName.View()),
		"",
		"Details:",
		detailsStyle.Render(v.editDetails.View()),
		"",
		"Priority (1-10):",
		priorityStyle.Width(10).Render(v.editPriority.View()),
		"",
		"Tags:",
		tagsStyle.Width(inputWidth).Render(v.editTags.View()),
		"",
		btnStyle.Render(" Save "),
		"",
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	}
	if v.err != nil {
		rows = append(rows, "", s.Error.Render(v.err.Error()))
	}

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	completedLabel := "show done"
	if v.showingCompleted {
		completedLabel = "hide done"
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s new • %s subtask • %s edit • %s done • %s del • %s %s • %s back • %s more",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("a"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("space"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("c"),
			completedLabel,
			v.styles.HelpKey.Render("esc"),
			v.styles.HelpKey.Render("?"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	completedLabel := "show completed"
	if v.showingCompleted {
		completedLabel = "hide completed"
	}

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view task",
		s.HelpKey.Render("n") + "      new root task",
		s.HelpKey.Render("a") + "      new subtask",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("space") + "  toggle done",
		s.HelpKey.Render("s") + "      cycle status",
		s.HelpKey.Render("d") + "      delete task and subtasks",
		s.HelpKey.Render(">") + "      indent under previous task",
		s.HelpKey.Render("<") + "      outdent to parent level",
		s.HelpKey.Render("←/→") + "    collapse / expand",
		s.HelpKey.Render("c") + "      " + completedLabel,
		s.HelpKey.Render("esc") + "    back",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	rows := []string{
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("Delete %q?", v.deleteTargetName)),
	}
	switch v.deleteSubtasks {
	case 0:
	case 1:
		rows = append(rows, s.TitleMuted.Render("Its subtask will be deleted too."))
	default:
		rows = append(rows, s.TitleMuted.Render(fmt.Sprintf("Its %d subtasks will be deleted too.", v.deleteSubtasks)))
	}
	rows = append(rows, "",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderTaskView() string {
	task, ok := v.selected()
	if !ok {
		return ""
	}

	s := v.styles
	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 70)
	labelStyle := s.TitleMuted

	path := v.project.Name
	for _, a := range v.viewAncestors {
		path += " › " + a.Name
	}

	tagsLine := "None"
	if len(task.Tags) > 0 {
		tagsLine = s.Tag.Render("#" + strings.Join(task.Tags, " #"))
	}

	detailsText := task.Details
	if detailsText == "" {
		detailsText = s.TitleMuted.Render("No details")
	}

	status := lipgloss.NewStyle().Foreground(styles.StatusColor(task.Status)).Render(string(task.Status))
	facts := []string{
		labelStyle.Render("Status") + "      " + styles.StatusBadge(task.Status) + " " + status,
		labelStyle.Render("Priority") + "    " + s.TaskPriority.Render(strconv.Itoa(task.Priority)),
		labelStyle.Render("Level") + "       " + strconv.Itoa(task.Level),
	}
	if task.Complexity != nil {
		facts = append(facts, labelStyle.Render("Complexity")+"  "+strconv.Itoa(*task.Complexity))
	}
	if task.EstimatedHours != nil {
		facts = append(facts, labelStyle.Render("Estimate")+"    "+strconv.FormatFloat(*task.EstimatedHours, 'f', -1, 64)+"h")
	}
	if len(task.DependsOn) > 0 {
		facts = append(facts, labelStyle.Render("Depends on")+"  "+strings.Join(task.DependsOn, ", "))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.TitleMuted.Render(path),
		s.Title.MarginBottom(1).Render(task.Name),
		lipgloss.JoinVertical(lipgloss.Left, facts...),
		"",
		labelStyle.Render("Tags"),
		tagsLine,
		"",
		labelStyle.Render("Details"),
		lipgloss.NewStyle().Width(textWidth).Render(detailsText),
		"",
		labelStyle.Render("Updated "+task.UpdatedAt.Local().Format("Jan 2, 2006 3:04 PM")),
		"",
		s.Help.Render(
			fmt.Sprintf("%s edit • %s subtask • %s done • %s delete • %s back",
				s.HelpKey.Render("e"),
				s.HelpKey.Render("a"),
				s.HelpKey.Render("space"),
				s.HelpKey.Render("d"),
				s.HelpKey.Render("esc"),
			),
		),
	)

	padded := lipgloss.NewStyle().Padding(1, 2).Render(content)
	return styles.CenterView(padded, v.width, v.height)
}
