package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/resellers/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/tenant"
)

// PostgresRepository implements the reseller repository over the shared persistence layer.
type PostgresRepository struct {
	store *persistence.LicenseStore
}

func NewPostgresRepository(store *persistence.LicenseStore) *PostgresRepository {
	if store == nil {
		panic("license store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) GetAccount(ctx context.Context, scope tenant.Scope) (service.Account, error) {
	rec, err := r.store.GetAccount(ctx, scope)
	if errors.Is(err, persistence.ErrNotFound) {
		return service.Account{}, service.ErrNotReseller
	}
	return toAccount(rec), err
}

func (r *PostgresRepository) Portfolio(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID) (service.Portfolio, error) {
	rec, err := r.store.Portfolio(ctx, scope, resellerID)
	if err != nil {
		return service.Portfolio{}, err
	}
	return service.Portfolio{
		Clients:            rec.Clients,
		Licenses:           toCounts(rec.LicenseCounts),
		ScreensProvisioned: rec.ScreensProvisioned,
	}, nil
}

func (r *PostgresRepository) InsertLicenses(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID, codes []string, planLevel string, maxScreens int) ([]service.License, error) {
	recs, err := r.store.InsertLicenses(ctx, scope, resellerID, codes, planLevel, maxScreens)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return toLicenses(recs), nil
}

func (r *PostgresRepository) ListLicenses(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID, status *service.LicenseStatus, limit, offset int) ([]service.License, int, error) {
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	recs, total, err := r.store.ListLicenses(ctx, scope, resellerID, filter, limit, offset)
	if err != nil {
		return nil, 0, mapPersistenceError(err)
	}
	return toLicenses(recs), total, nil
}

func (r *PostgresRepository) Counts(ctx context.Context, scope tenant.Scope, resellerID uuid.UUID) (service.LicenseCounts, error) {
	rec, err := r.store.Counts(ctx, scope, resellerID)
	return toCounts(rec), err
}

func (r *PostgresRepository) Activate(ctx context.Context, code string, tenantID uuid.UUID) (service.License, error) {
	rec, err := r.store.Activate(ctx, code, tenantID)
	if err != nil {
		return service.License{}, mapPersistenceError(err)
	}
	return toLicense(rec), nil
}

func toAccount(rec persistence.ResellerAccountRecord) service.Account {
	return service.Account{
		ID:                rec.ID,
		CompanyName:       rec.CompanyName,
		Status:            service.AccountStatus(rec.Status),
		CommissionPercent: rec.CommissionPercent,
		CreatedAt:         rec.CreatedAt,
	}
}

func toLicense(rec persistence.LicenseRecord) service.License {
	return service.License{
		ID:                rec.ID,
		ResellerID:        rec.ResellerID,
		Code:              rec.Code,
		Status:            service.LicenseStatus(rec.Status),
		PlanLevel:         rec.PlanLevel,
		MaxScreens:        rec.MaxScreens,
		ActivatedTenantID: rec.ActivatedTenantID,
		ActivatedAt:       rec.ActivatedAt,
		CreatedAt:         rec.CreatedAt,
	}
}

func toLicenses(recs []persistence.LicenseRecord) []service.License {
	out := make([]service.License, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toLicense(rec))
	}
	return out
}

func toCounts(rec persistence.LicenseCounts) service.LicenseCounts {
	return service.LicenseCounts{Total: rec.Total, Available: rec.Available, Activated: rec.Activated}
}

func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrLicenseNotFound
	case errors.Is(err, persistence.ErrLicenseAlreadyActivated):
		return service.ErrAlreadyActivated
	default:
		return err
	}
}

var _ service.Repository = (*PostgresRepository)(nil)
