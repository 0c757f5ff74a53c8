package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/schedules/be/service"
	"github.com/bizscreen/console/platform/go/tenant"
)

type memSchedule struct {
	tenantID uuid.UUID
	schedule service.Schedule
	entries  []service.Entry
}

// MemoryRepository is an in-memory implementation suitable for tests and local development.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*memSchedule
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[uuid.UUID]*memSchedule{}, now: time.Now}
}

func (r *MemoryRepository) lookup(scope tenant.Scope, id uuid.UUID) (*memSchedule, error) {
	row, ok := r.rows[id]
	if !ok || row.tenantID != scope.TenantID {
		return nil, service.ErrNotFound
	}
	return row, nil
}

func (r *MemoryRepository) snapshot(row *memSchedule) service.Schedule {
	out := row.schedule
	out.EntryCount = len(row.entries)
	return out
}

func (r *MemoryRepository) List(ctx context.Context, scope tenant.Scope) ([]service.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]service.Schedule, 0)
	for _, row := range r.rows {
		if row.tenantID == scope.TenantID {
			out = append(out, r.snapshot(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, err := r.lookup(scope, id)
	if err != nil {
		return service.Schedule{}, err
	}
	return r.snapshot(row), nil
}

func (r *MemoryRepository) Create(ctx context.Context, scope tenant.Scope, name, description string) (service.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	row := &memSchedule{
		tenantID: scope.TenantID,
		schedule: service.Schedule{ID: uuid.New(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now},
	}
	r.rows[row.schedule.ID] = row
	return r.snapshot(row), nil
}

func (r *MemoryRepository) AddEntry(ctx context.Context, scope tenant.Scope, scheduleID uuid.UUID, entry service.Entry) (service.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.lookup(scope, scheduleID)
	if err != nil {
		return service.Entry{}, err
	}
	row.entries = append(row.entries, entry)
	row.schedule.UpdatedAt = r.now().UTC()
	return entry, nil
}

func (r *MemoryRepository) Duplicate(ctx context.Context, scope tenant.Scope, id uuid.UUID, name string) (service.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, err := r.lookup(scope, id)
	if err != nil {
		return service.Schedule{}, err
	}

	now := r.now().UTC()
	row := &memSchedule{
		tenantID: scope.TenantID,
		schedule: service.Schedule{ID: uuid.New(), Name: name, Description: src.schedule.Description, CreatedAt: now, UpdatedAt: now},
	}
	for _, e := range src.entries {
		e.ID = uuid.New()
		e.DaysOfWeek = append([]time.Weekday(nil), e.DaysOfWeek...)
		row.entries = append(row.entries, e)
	}
	r.rows[row.schedule.ID] = row
	return r.snapshot(row), nil
}

func (r *MemoryRepository) SetActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) (service.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.lookup(scope, id)
	if err != nil {
		return service.Schedule{}, err
	}
	row.schedule.IsActive = active
	row.schedule.UpdatedAt = r.now().UTC()
	return r.snapshot(row), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.lookup(scope, id); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

var _ service.Repository = (*MemoryRepository)(nil)
