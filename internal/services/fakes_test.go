package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/notify"
	"github.com/obispado/citas-backend/internal/repo"
	"github.com/obispado/citas-backend/internal/schedule"
)

// ----- Fake appointment repo -----

type fakeApptRepo struct {
	mu     sync.Mutex
	items  []domain.Appointment
	nextID uint64

	countCalls  int
	createCalls int
	updateCalls int
	deleteCalls int

	countErr  error
	createErr error
	listErr   error
	updateErr error
	deleteErr error

	lastFilter repo.AppointmentFilter
	purgedAt   schedule.Date
}

func (r *fakeApptRepo) seed(a domain.Appointment) domain.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if a.ID == 0 {
		a.ID = r.nextID
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	r.items = append(r.items, a)
	return a
}

func (r *fakeApptRepo) CreateAppointment(ctx context.Context, db *gorm.DB, a *domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	a.ID = r.nextID
	r.items = append(r.items, *a)
	return nil
}

func (r *fakeApptRepo) GetAppointment(ctx context.Context, db *gorm.DB, id uint64) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *fakeApptRepo) ListAppointments(ctx context.Context, db *gorm.DB, f repo.AppointmentFilter) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []domain.Appointment{}
	for _, a := range r.items {
		if f.Date != nil && a.Date != *f.Date {
			continue
		}
		if f.From != nil && a.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && a.Date.After(*f.To) {
			continue
		}
		if f.ExcludeCancelled && a.Status == domain.StatusCancelled {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (r *fakeApptRepo) CountActiveAt(ctx context.Context, db *gorm.DB, date schedule.Date, t schedule.TimeOfDay) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	if r.countErr != nil {
		return 0, r.countErr
	}
	var n int64
	for _, a := range r.items {
		if a.Date == date && a.Time == t && a.Status != domain.StatusCancelled {
			n++
		}
	}
	return n, nil
}

func (r *fakeApptRepo) UpdateAppointmentStatus(ctx context.Context, db *gorm.DB, id uint64, status domain.Status, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	for i := range r.items {
		if r.items[i].ID == id {
			if !r.items[i].Status.CanTransitionTo(status) {
				return repo.ErrStaleStatus
			}
			r.items[i].Status = status
			r.items[i].UpdatedAt = now
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *fakeApptRepo) DeleteAppointment(ctx context.Context, db *gorm.DB, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *fakeApptRepo) DeleteAppointmentsBefore(ctx context.Context, db *gorm.DB, date schedule.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgedAt = date
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	kept := r.items[:0]
	for _, a := range r.items {
		if !a.Date.Before(date) {
			kept = append(kept, a)
		}
	}
	n := int64(len(r.items) - len(kept))
	r.items = kept
	return n, nil
}

func (r *fakeApptRepo) DateStats(ctx context.Context, db *gorm.DB, date schedule.Date) (int64, *time.Time, error) {
	return 0, nil, nil
}

// ----- Fake idempotency repo -----

type fakeIdemRepo struct {
	records map[string]uint64
	getErr  error
}

func (r *fakeIdemRepo) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	id, ok := r.records[scope+"/"+key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &domain.Idempotency{Scope: scope, Key: key, AppointmentID: id}, nil
}

func (r *fakeIdemRepo) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key string, appointmentID uint64, status int, ttl time.Duration) (*domain.Idempotency, error) {
	if r.records == nil {
		r.records = map[string]uint64{}
	}
	r.records[scope+"/"+key] = appointmentID
	return &domain.Idempotency{Scope: scope, Key: key, AppointmentID: appointmentID, Status: status}, nil
}

// ----- Fake sender -----

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(ctx context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// ----- Helpers -----

// fixedClock pins "now" to 2026-10-18 10:00 UTC (a Sunday).
func fixedClock() Clock {
	return func() time.Time { return time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC) }
}

func newTestAvailability(r AppointmentRepo) *AvailabilityService {
	s := NewAvailabilityService(nil, r, schedule.DefaultCalendar())
	s.Clock = fixedClock()
	s.Location = time.UTC
	return s
}
