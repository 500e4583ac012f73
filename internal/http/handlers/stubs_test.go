package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/domain"
	"github.com/obispado/citas-backend/internal/http/middleware"
	"github.com/obispado/citas-backend/internal/schedule"
	"github.com/obispado/citas-backend/internal/services"
	"github.com/obispado/citas-backend/internal/session"
)

// ---- stubs to satisfy handlers.New() dependencies ----

type stubAvail struct {
	check    func(ctx context.Context, date schedule.Date, t schedule.TimeOfDay) services.Availability
	daySlots func(ctx context.Context, date schedule.Date) (*services.DaySchedule, error)
	stats    func(ctx context.Context, date schedule.Date) (int64, *time.Time, error)
	lastDays int
}

func (s *stubAvail) Check(ctx context.Context, date schedule.Date, t schedule.TimeOfDay) services.Availability {
	if s.check != nil {
		return s.check(ctx, date, t)
	}
	return services.Availability{Available: true, Reason: "Horario disponible"}
}

func (s *stubAvail) DaySlots(ctx context.Context, date schedule.Date) (*services.DaySchedule, error) {
	if s.daySlots != nil {
		return s.daySlots(ctx, date)
	}
	return &services.DaySchedule{Date: date, Slots: []services.SlotStatus{}}, nil
}

func (s *stubAvail) DateStats(ctx context.Context, date schedule.Date) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(ctx, date)
	}
	return 0, nil, errors.New("no stats")
}

func (s *stubAvail) UpcomingDays(days int) []schedule.DayAvailability {
	s.lastDays = days
	return []schedule.DayAvailability{}
}

type stubBooking struct {
	submit func(ctx context.Context, key string, req services.BookingRequest) (*domain.Appointment, bool, error)
}

func (s stubBooking) SubmitIdempotent(ctx context.Context, key string, req services.BookingRequest) (*domain.Appointment, bool, error) {
	return s.submit(ctx, key, req)
}

type stubAdmin struct {
	ws       *services.Workspace
	wsErr    error
	today    schedule.Date
	refresh  func(ctx context.Context, ws *services.Workspace) error
	change   func(ctx context.Context, ws *services.Workspace, id uint64, st domain.Status) (*services.StatusChange, error)
	del      func(ctx context.Context, ws *services.Workspace, id uint64) error
	purge    func(ctx context.Context) (int64, error)
	sessions []string
}

func (s *stubAdmin) Workspace(_ context.Context, sessionID string) (*services.Workspace, error) {
	s.sessions = append(s.sessions, sessionID)
	if s.wsErr != nil {
		return nil, s.wsErr
	}
	return s.ws, nil
}

func (s *stubAdmin) Refresh(ctx context.Context, ws *services.Workspace) error {
	if s.refresh != nil {
		return s.refresh(ctx, ws)
	}
	return nil
}

func (s *stubAdmin) Today() schedule.Date { return s.today }

func (s *stubAdmin) ChangeStatus(ctx context.Context, ws *services.Workspace, id uint64, st domain.Status) (*services.StatusChange, error) {
	return s.change(ctx, ws, id, st)
}

func (s *stubAdmin) Delete(ctx context.Context, ws *services.Workspace, id uint64) error {
	return s.del(ctx, ws, id)
}

func (s *stubAdmin) PurgeExpired(ctx context.Context) (int64, error) {
	return s.purge(ctx)
}

type stubAuth struct {
	login  func(ctx context.Context, username, password string, c services.Client) (*services.Login, error)
	logout func(ctx context.Context, sess *session.Session, c services.Client) error
	logs   []domain.AccessLog
	ended  []string
	limit  int
}

func (s *stubAuth) Login(ctx context.Context, username, password string, c services.Client) (*services.Login, error) {
	return s.login(ctx, username, password, c)
}

func (s *stubAuth) Logout(ctx context.Context, sess *session.Session, c services.Client) error {
	if s.logout != nil {
		return s.logout(ctx, sess, c)
	}
	return nil
}

func (s *stubAuth) EndSession(_ context.Context, sessionID string) error {
	s.ended = append(s.ended, sessionID)
	return nil
}

func (s *stubAuth) AccessLog(_ context.Context, limit int) ([]domain.AccessLog, error) {
	s.limit = limit
	return s.logs, nil
}

type stubDigest struct {
	send func(ctx context.Context) (*services.DigestResult, error)
}

func (s stubDigest) Send(ctx context.Context) (*services.DigestResult, error) { return s.send(ctx) }

// tokenAuth accepts the single token "t1" for session "s1".
type tokenAuth struct{}

func (tokenAuth) Authenticate(_ context.Context, token string) (*session.Session, error) {
	if token != "t1" {
		return nil, services.ErrSessionExpired
	}
	return &session.Session{ID: "s1", Username: "obispo", Role: "admin"}, nil
}

// adminEngine mounts register behind RequireAdmin.
func adminEngine(register func(r gin.IRoutes)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/admin", middleware.RequestID(), middleware.RequireAdmin(tokenAuth{}))
	register(g)
	return r
}

func sampleWorkspace(now time.Time) *services.Workspace {
	ws := services.NewWorkspaces().Open("s1")
	ws.Replace([]domain.Appointment{
		{ID: 1, Name: "José Pérez", Phone: "912345678", Email: "jose@example.com", Date: schedule.MustDate("2026-10-20"), Time: schedule.MustTimeOfDay("20:00"), Reason: "Entrevista de templo", Status: domain.StatusPending},
		{ID: 2, Name: "Ana Soto", Phone: "987654321", Email: "", Date: schedule.MustDate("2026-10-18"), Time: schedule.MustTimeOfDay("18:00"), Reason: "Consejo familiar", Status: domain.StatusConfirmed},
		{ID: 3, Name: "Luis Rojas", Phone: "955555555", Email: "luis@example.com", Date: schedule.MustDate("2026-10-24"), Time: schedule.MustTimeOfDay("17:30"), Reason: "Bendición", Status: domain.StatusCancelled},
	}, now)
	return ws
}
