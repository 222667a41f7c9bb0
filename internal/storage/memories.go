package storage

import (
	"sort"
	"strings"

	"github.com/tgienger/atm/internal/models"
)

// MemoryDraft holds the caller-supplied fields of a new memory
type MemoryDraft struct {
	ID       string // optional; generated when empty
	Title    string
	Content  string
	Category string
	Metadata map[string]models.MetadataValue
}

// MemoryUpdate lists the fields to change; nil fields are left alone.
// A non-nil Metadata replaces the stored map.
type MemoryUpdate struct {
	Title    *string
	Content  *string
	Category *string
	Metadata map[string]models.MetadataValue
}

// MemoryFilter selects memories for List
type MemoryFilter struct {
	Category string
	Limit    int // 0 returns every match
}

// MemoryRepository owns the memories document
type MemoryRepository struct {
	s     *Storage
	items []models.Memory
}

// Create stores a new memory
func (r *MemoryRepository) Create(draft MemoryDraft) (*models.Memory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, invalid("memory title is required")
	}
	if strings.TrimSpace(draft.Content) == "" {
		return nil, invalid("memory content is required")
	}
	if err := checkMetadata(draft.Metadata); err != nil {
		return nil, err
	}
	id := draft.ID
	if id == "" {
		id = r.s.newID()
	} else if r.index(id) >= 0 {
		return nil, invalid("memory id %q already exists", id)
	}
	r.checkTitle(id, title)

	now := r.s.clock()
	m := models.Memory{
		ID:        id,
		Title:     title,
		Content:   draft.Content,
		Category:  strings.TrimSpace(draft.Category),
		Metadata:  map[string]models.MetadataValue{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if draft.Metadata != nil {
		m.Metadata = models.Memory{Metadata: draft.Metadata}.Clone().Metadata
	}

	next := append(r.clone(), m.Clone())
	if err := r.commit(next); err != nil {
		return nil, err
	}
	r.s.log.WithField("memory", id).Debug("memory created")
	return &m, nil
}

// Get returns a memory by id
func (r *MemoryRepository) Get(id string) (*models.Memory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return nil, notFound("memory", id)
	}
	m := r.items[i].Clone()
	return &m, nil
}

// List returns memories in creation order
func (r *MemoryRepository) List(filter MemoryFilter) []models.Memory {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Memory{}
	for _, m := range r.items {
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		out = append(out, m.Clone())
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// Update changes the given fields and refreshes UpdatedAt
func (r *MemoryRepository) Update(id string, upd MemoryUpdate) (*models.Memory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return nil, notFound("memory", id)
	}

	next := r.clone()
	m := &next[i]
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, invalid("memory title is required")
		}
		r.checkTitle(id, title)
		m.Title = title
	}
	if upd.Content != nil {
		if strings.TrimSpace(*upd.Content) == "" {
			return nil, invalid("memory content is required")
		}
		m.Content = *upd.Content
	}
	if upd.Category != nil {
		m.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.Metadata != nil {
		if err := checkMetadata(upd.Metadata); err != nil {
			return nil, err
		}
		m.Metadata = models.Memory{Metadata: upd.Metadata}.Clone().Metadata
	}
	m.UpdatedAt = r.s.touch(m.UpdatedAt)

	if err := r.commit(next); err != nil {
		return nil, err
	}
	out := next[i].Clone()
	return &out, nil
}

// Delete removes a memory
func (r *MemoryRepository) Delete(id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return notFound("memory", id)
	}
	next := r.clone()
	next = append(next[:i], next[i+1:]...)
	if err := r.commit(next); err != nil {
		return err
	}
	r.s.log.WithField("memory", id).Debug("memory deleted")
	return nil
}

// Categories returns the distinct non-empty categories, sorted
func (r *MemoryRepository) Categories() []string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := map[string]bool{}
	out := []string{}
	for _, m := range r.items {
		if m.Category != "" && !seen[m.Category] {
			seen[m.Category] = true
			out = append(out, m.Category)
		}
	}
	sort.Strings(out)
	return out
}

func (r *MemoryRepository) checkTitle(id, title string) {
	if n := len([]rune(title)); n > models.RecommendedTitleLength {
		r.s.log.WithField("memory", id).WithField("length", n).
			Warn("memory title is longer than recommended")
	}
}

func (r *MemoryRepository) index(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) clone() []models.Memory {
	out := make([]models.Memory, len(r.items))
	for i := range r.items {
		out[i] = r.items[i].Clone()
	}
	return out
}

// commit persists next and only then makes it the in-memory state
func (r *MemoryRepository) commit(next []models.Memory) error {
	if err := r.s.memoriesDoc.persist(&memoriesFile{Memories: next}); err != nil {
		return err
	}
	r.items = next
	return nil
}

// checkMetadata rejects values that cannot be written to the memories document
func checkMetadata(md map[string]models.MetadataValue) error {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !md[k].Finite() {
			return invalid("metadata %q holds a non-finite number", k)
		}
	}
	return nil
}
