package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/schedules/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

type mockService struct {
	listFn      func(ctx context.Context, scope tenant.Scope) ([]service.Schedule, error)
	createFn    func(ctx context.Context, scope tenant.Scope, name, description string) (service.Schedule, error)
	deleteFn    func(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	duplicateFn func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Schedule, error)
	activeFn    func(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (service.Schedule, error)
	entryFn     func(ctx context.Context, scope tenant.Scope, id uuid.UUID, input service.EntryInput) (service.Entry, error)
}

func (m *mockService) FetchSchedules(ctx context.Context, scope tenant.Scope) ([]service.Schedule, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, scope)
}

func (m *mockService) CreateSchedule(ctx context.Context, scope tenant.Scope, name, description string) (service.Schedule, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, scope, name, description)
}

func (m *mockService) DeleteSchedule(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, scope, id)
}

func (m *mockService) DuplicateSchedule(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Schedule, error) {
	if m.duplicateFn == nil {
		panic("duplicateFn not configured")
	}
	return m.duplicateFn(ctx, scope, id)
}

func (m *mockService) SetScheduleActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (service.Schedule, error) {
	if m.activeFn == nil {
		panic("activeFn not configured")
	}
	return m.activeFn(ctx, scope, id, active)
}

func (m *mockService) AddEntry(ctx context.Context, scope tenant.Scope, id uuid.UUID, input service.EntryInput) (service.Entry, error) {
	if m.entryFn == nil {
		panic("entryFn not configured")
	}
	return m.entryFn(ctx, scope, id, input)
}

var testScope = tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleEditor}

func do(t *testing.T, svc service.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	New(svc, zaptest.NewLogger(t)).Register(r)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(tenant.WithScope(req.Context(), testScope))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateSchedule(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		createFn: func(ctx context.Context, scope tenant.Scope, name, description string) (service.Schedule, error) {
			require.Equal(t, testScope, scope)
			require.Equal(t, "Morning", name)
			return service.Schedule{ID: uuid.New(), Name: name, UpdatedAt: time.Now()}, nil
		},
	}

	rec := do(t, svc, http.MethodPost, "/schedules", `{"name":"Morning"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "/api/v1/schedules/")

	var body scheduleDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 0, body.EntryCount)

	rec = do(t, svc, http.MethodPost, "/schedules", `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetActiveRequiresFlag(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{
		activeFn: func(ctx context.Context, scope tenant.Scope, got uuid.UUID, active bool) (service.Schedule, error) {
			require.Equal(t, id, got)
			require.False(t, active)
			return service.Schedule{ID: id}, nil
		},
	}

	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodPatch, "/schedules/"+id.String()+"/active", `{}`).Code)
	require.Equal(t, http.StatusOK, do(t, svc, http.MethodPatch, "/schedules/"+id.String()+"/active", `{"isActive":false}`).Code)
}

func TestDeleteMapsNotFound(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		deleteFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID) error { return service.ErrNotFound },
	}
	require.Equal(t, http.StatusNotFound, do(t, svc, http.MethodDelete, "/schedules/"+uuid.NewString(), "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodDelete, "/schedules/not-a-uuid", "").Code)
}

func TestAddEntryConvertsDays(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		entryFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID, input service.EntryInput) (service.Entry, error) {
			require.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, input.DaysOfWeek)
			return service.Entry{ID: uuid.New(), StartMinute: input.StartMinute, EndMinute: input.EndMinute, DaysOfWeek: input.DaysOfWeek}, nil
		},
	}
	rec := do(t, svc, http.MethodPost, "/schedules/"+uuid.NewString()+"/entries", `{"startMinute":60,"endMinute":120,"daysOfWeek":[1,3]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"daysOfWeek":[1,3]`)

	rec = do(t, svc, http.MethodPost, "/schedules/"+uuid.NewString()+"/entries", `{"startMinute":60,"endMinute":120,"daysOfWeek":[8]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
