package services

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/schedule"
)

// Workspace is one admin session's view of the appointment list. It is
// loaded by AdminService.Refresh and patched in place after each change so
// the panel does not re-fetch the whole list.
type Workspace struct {
	mu       sync.RWMutex
	items    []domain.Appointment
	loadedAt time.Time
}

// ListFilter narrows Workspace.Filter. Zero fields are ignored.
type ListFilter struct {
	Date   *schedule.Date
	Status domain.Status
	Query  string // matched against name, email and phone
}

// Stats summarizes a workspace for the admin dashboard.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Today     int `json:"today"`
}

// Replace swaps the whole list, keeping the store order.
func (w *Workspace) Replace(list []domain.Appointment, at time.Time) {
	cp := make([]domain.Appointment, len(list))
	copy(cp, list)
	w.mu.Lock()
	w.items = cp
	w.loadedAt = at
	w.mu.Unlock()
}

// Loaded reports whether the workspace has been filled at least once.
func (w *Workspace) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.loadedAt.IsZero()
}

// LoadedAt is the time of the last Replace.
func (w *Workspace) LoadedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loadedAt
}

// Get returns a copy of the appointment with id.
func (w *Workspace) Get(id uint64) (domain.Appointment, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if i := w.index(id); i >= 0 {
		return w.items[i], true
	}
	return domain.Appointment{}, false
}

// Patch applies fn to the stored record with id and returns the result.
func (w *Workspace) Patch(id uint64, fn func(*domain.Appointment)) (domain.Appointment, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.index(id)
	if i < 0 {
		return domain.Appointment{}, false
	}
	fn(&w.items[i])
	return w.items[i], true
}

// Remove deletes the record with id.
func (w *Workspace) Remove(id uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.index(id)
	if i < 0 {
		return false
	}
	w.items = append(w.items[:i], w.items[i+1:]...)
	return true
}

// RemoveBefore deletes every record dated before date and returns the count.
func (w *Workspace) RemoveBefore(date schedule.Date) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.items[:0]
	for _, a := range w.items {
		if !a.Date.Before(date) {
			kept = append(kept, a)
		}
	}
	n := len(w.items) - len(kept)
	w.items = kept
	return n
}

// Snapshot returns a copy of the whole list.
func (w *Workspace) Snapshot() []domain.Appointment {
	return w.Filter(ListFilter{})
}

// Filter returns the matching records in list order. The query ignores case
// and accents, so "jose" finds "José".
func (w *Workspace) Filter(f ListFilter) []domain.Appointment {
	q := fold(f.Query)
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.Appointment, 0, len(w.items))
	for _, a := range w.items {
		if f.Date != nil && a.Date != *f.Date {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if q != "" && !matches(a, q) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Stats counts records per status plus those dated today.
func (w *Workspace) Stats(today schedule.Date) Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := Stats{Total: len(w.items)}
	for _, a := range w.items {
		switch a.Status {
		case domain.StatusPending:
			st.Pending++
		case domain.StatusConfirmed:
			st.Confirmed++
		case domain.StatusCancelled:
			st.Cancelled++
		}
		if a.Date == today && IsActive(a.Status) {
			st.Today++
		}
	}
	return st
}

func (w *Workspace) index(id uint64) int {
	for i := range w.items {
		if w.items[i].ID == id {
			return i
		}
	}
	return -1
}

func matches(a domain.Appointment, q string) bool {
	if strings.Contains(fold(a.Name), q) || strings.Contains(fold(a.Email), q) {
		return true
	}
	pq := normalizePhone(q)
	return pq != "" && strings.Contains(normalizePhone(a.Phone), pq)
}

// fold lower-cases s and strips combining marks.
func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Workspaces holds one Workspace per admin session, with the time each was
// last used.
type Workspaces struct {
	mu    sync.Mutex
	items map[string]*workspaceEntry
	Clock Clock
}

type workspaceEntry struct {
	ws       *Workspace
	lastUsed time.Time
}

// NewWorkspaces returns an empty registry.
func NewWorkspaces() *Workspaces {
	return &Workspaces{items: make(map[string]*workspaceEntry), Clock: time.Now}
}

// Open returns the workspace for sessionID, creating an empty one if needed.
func (r *Workspaces) Open(sessionID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[sessionID]
	if !ok {
		e = &workspaceEntry{ws: &Workspace{}}
		r.items[sessionID] = e
	}
	e.lastUsed = r.Clock.now()
	return e.ws
}

// Lookup returns the workspace for sessionID without creating it.
func (r *Workspaces) Lookup(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[sessionID]
	if !ok {
		return nil, false
	}
	return e.ws, true
}

// Touch marks the workspace for sessionID as used now, if it exists.
func (r *Workspaces) Touch(sessionID string) {
	r.mu.Lock()
	if e, ok := r.items[sessionID]; ok {
		e.lastUsed = r.Clock.now()
	}
	r.mu.Unlock()
}

// Drop tears the workspace down at session end.
func (r *Workspaces) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.items, sessionID)
	r.mu.Unlock()
}

// DropIdle removes every workspace unused for longer than idle and returns
// how many were removed.
func (r *Workspaces) DropIdle(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.Clock.now().Add(-idle)
	n := 0
	for id, e := range r.items {
		if e.lastUsed.Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n
}

// Len returns the number of open workspaces.
func (r *Workspaces) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// RemoveBefore applies Workspace.RemoveBefore to every open workspace.
func (r *Workspaces) RemoveBefore(date schedule.Date) {
	r.mu.Lock()
	all := make([]*Workspace, 0, len(r.items))
	for _, e := range r.items {
		all = append(all, e.ws)
	}
	r.mu.Unlock()
	for _, ws := range all {
		ws.RemoveBefore(date)
	}
}
