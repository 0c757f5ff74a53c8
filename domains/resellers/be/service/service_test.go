package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/resellers/be/repo"
	"github.com/bizscreen/console/domains/resellers/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
	"github.com/bizscreen/console/platform/go/validation"
)

var codePattern = regexp.MustCompile(`^[ABCDEFGHJKMNPQRSTUVWXYZ2-9]{4}(-[ABCDEFGHJKMNPQRSTUVWXYZ2-9]{4}){3}$`)

func ownerScope() tenant.Scope {
	return tenant.Scope{TenantID: uuid.New(), UserID: "owner", Role: platformauth.RoleOwner}
}

func activeReseller(t *testing.T) (*repo.MemoryRepository, service.Service, tenant.Scope) {
	t.Helper()
	r := repo.NewMemoryRepository()
	scope := ownerScope()
	r.CreateAccount(scope.TenantID, "Signs & Co", 15)
	_, err := r.SetAccountStatus(scope.TenantID, service.AccountActive)
	require.NoError(t, err)
	return r, service.New(r, nil, zaptest.NewLogger(t)), scope
}

func TestNewCodeFormat(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		code, err := service.NewCode()
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	got, ok := service.NormalizeCode(" abcd efgh-jkmn-pqrs ")
	require.True(t, ok)
	require.Equal(t, "ABCD-EFGH-JKMN-PQRS", got)

	_, ok = service.NormalizeCode("ABCD-EFGH-JKMN-PQR0")
	require.False(t, ok, "zero is not in the alphabet")
	_, ok = service.NormalizeCode("ABCD-EFGH")
	require.False(t, ok)
}

func TestGenerateLicensesYieldsExactlyNUniqueCodes(t *testing.T) {
	t.Parallel()
	_, svc, scope := activeReseller(t)

	out, err := svc.GenerateLicenses(context.Background(), scope, service.GenerateRequest{Quantity: 100, PlanLevel: "Pro", MaxScreens: 5})
	require.NoError(t, err)
	require.Len(t, out, 100)

	seen := map[string]struct{}{}
	for _, l := range out {
		require.Regexp(t, codePattern, l.Code)
		require.Equal(t, "pro", l.PlanLevel)
		require.Equal(t, service.LicenseAvailable, l.Status)
		seen[l.Code] = struct{}{}
	}
	require.Len(t, seen, 100)
}

func TestGenerateLicensesRegeneratesCollisions(t *testing.T) {
	t.Parallel()
	r, _, scope := activeReseller(t)
	logger := zaptest.NewLogger(t)

	// The first service stores AAAA-... so the second must skip it.
	first := service.NewWithCodeSource(r, nil, logger, sequence("AAAA-AAAA-AAAA-AAAA"))
	_, err := first.GenerateLicenses(context.Background(), scope, service.GenerateRequest{Quantity: 1, PlanLevel: "starter", MaxScreens: 1})
	require.NoError(t, err)

	second := service.NewWithCodeSource(r, nil, logger, sequence(
		"AAAA-AAAA-AAAA-AAAA", "BBBB-BBBB-BBBB-BBBB", "BBBB-BBBB-BBBB-BBBB", "CCCC-CCCC-CCCC-CCCC",
	))
	out, err := second.GenerateLicenses(context.Background(), scope, service.GenerateRequest{Quantity: 2, PlanLevel: "starter", MaxScreens: 1})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.ElementsMatch(t, []string{"BBBB-BBBB-BBBB-BBBB", "CCCC-CCCC-CCCC-CCCC"}, []string{out[0].Code, out[1].Code})

	stats, err := second.GetLicenseStats(context.Background(), scope)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
}

func TestGenerateLicensesGivesUpWhenEveryCodeCollides(t *testing.T) {
	t.Parallel()
	r, _, scope := activeReseller(t)
	logger := zaptest.NewLogger(t)
	same := func() (string, error) { return "AAAA-AAAA-AAAA-AAAA", nil }

	_, err := service.NewWithCodeSource(r, nil, logger, same).GenerateLicenses(context.Background(), scope, service.GenerateRequest{Quantity: 1, PlanLevel: "starter", MaxScreens: 1})
	require.NoError(t, err)

	_, err = service.NewWithCodeSource(r, nil, logger, same).GenerateLicenses(context.Background(), scope, service.GenerateRequest{Quantity: 1, PlanLevel: "starter", MaxScreens: 1})
	require.ErrorIs(t, err, service.ErrCodeSpaceExhausted)
}

func TestGenerateLicensesReturnsStoredCodesWhenALaterRoundFails(t *testing.T) {
	t.Parallel()
	r, _, scope := activeReseller(t)
	logger := zaptest.NewLogger(t)
	ctx := context.Background()
	taken := "AAAA-AAAA-AAAA-AAAA"

	_, err := service.NewWithCodeSource(r, nil, logger, sequence(taken)).GenerateLicenses(ctx, scope, service.GenerateRequest{Quantity: 1, PlanLevel: "starter", MaxScreens: 1})
	require.NoError(t, err)

	// Round one stores BBBB and collides on AAAA; every later round draws AAAA again.
	draws := []string{"BBBB-BBBB-BBBB-BBBB", taken}
	next := func() (string, error) {
		if len(draws) > 0 {
			c := draws[0]
			draws = draws[1:]
			return c, nil
		}
		return taken, nil
	}
	svc := service.NewWithCodeSource(r, nil, logger, next)
	out, err := svc.GenerateLicenses(ctx, scope, service.GenerateRequest{Quantity: 2, PlanLevel: "starter", MaxScreens: 1})
	require.ErrorIs(t, err, service.ErrCodeSpaceExhausted)
	require.Len(t, out, 1)
	require.Equal(t, "BBBB-BBBB-BBBB-BBBB", out[0].Code)

	stats, err := svc.GetLicenseStats(ctx, scope)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
}

func TestGenerateLicensesValidation(t *testing.T) {
	t.Parallel()
	_, svc, scope := activeReseller(t)

	_, err := svc.GenerateLicenses(context.Background(), scope, service.GenerateRequest{Quantity: 101, PlanLevel: "gold", MaxScreens: 0})
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "quantity")
	require.Contains(t, verr.Fields, "planLevel")
	require.Contains(t, verr.Fields, "maxScreens")
}

func TestGenerateLicensesRequiresActiveReseller(t *testing.T) {
	t.Parallel()
	r := repo.NewMemoryRepository()
	svc := service.New(r, nil, zaptest.NewLogger(t))
	scope := ownerScope()
	req := service.GenerateRequest{Quantity: 1, PlanLevel: "starter", MaxScreens: 1}

	_, err := svc.GenerateLicenses(context.Background(), scope, req)
	require.ErrorIs(t, err, service.ErrNotReseller)

	r.CreateAccount(scope.TenantID, "Pending Ltd", 10)
	_, err = svc.GenerateLicenses(context.Background(), scope, req)
	require.ErrorIs(t, err, service.ErrResellerInactive)

	_, err = r.SetAccountStatus(scope.TenantID, service.AccountSuspended)
	require.NoError(t, err)
	_, err = svc.GenerateLicenses(context.Background(), scope, req)
	require.ErrorIs(t, err, service.ErrResellerInactive)

	viewer := scope
	viewer.Role = platformauth.RoleViewer
	_, err = svc.GenerateLicenses(context.Background(), viewer, req)
	require.ErrorIs(t, err, tenant.ErrForbidden)
}

func TestListAndStats(t *testing.T) {
	t.Parallel()
	_, svc, scope := activeReseller(t)
	ctx := context.Background()

	created, err := svc.GenerateLicenses(ctx, scope, service.GenerateRequest{Quantity: 7, PlanLevel: "starter", MaxScreens: 2})
	require.NoError(t, err)

	client := ownerScope()
	_, err = svc.ActivateLicense(ctx, client, created[0].Code)
	require.NoError(t, err)

	page, err := svc.ListResellerLicenses(ctx, scope, service.ListRequest{Page: 1, PageSize: 5})
	require.NoError(t, err)
	require.Equal(t, 7, page.Total)
	require.Len(t, page.Items, 2)

	activated := service.LicenseActivated
	page, err = svc.ListResellerLicenses(ctx, scope, service.ListRequest{Status: &activated})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, created[0].Code, page.Items[0].Code)

	stats, err := svc.GetLicenseStats(ctx, scope)
	require.NoError(t, err)
	require.Equal(t, service.LicenseCounts{Total: 7, Available: 6, Activated: 1}, stats)

	portfolio, err := svc.GetPortfolioStats(ctx, scope)
	require.NoError(t, err)
	require.Equal(t, 1, portfolio.Clients)
	require.Equal(t, 2, portfolio.ScreensProvisioned)
	require.Equal(t, 15.0, portfolio.CommissionPercent)

	_, err = svc.ListResellerLicenses(ctx, scope, service.ListRequest{PageSize: 500})
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
}

func TestActivateLicenseIsMonotonic(t *testing.T) {
	t.Parallel()
	_, svc, scope := activeReseller(t)
	ctx := context.Background()

	created, err := svc.GenerateLicenses(ctx, scope, service.GenerateRequest{Quantity: 1, PlanLevel: "enterprise", MaxScreens: 50})
	require.NoError(t, err)
	code := created[0].Code

	client := ownerScope()
	l, err := svc.ActivateLicense(ctx, client, "  "+code[:9]+code[10:]+" ")
	require.NoError(t, err)
	require.Equal(t, service.LicenseActivated, l.Status)
	require.Equal(t, client.TenantID, *l.ActivatedTenantID)
	require.NotNil(t, l.ActivatedAt)

	_, err = svc.ActivateLicense(ctx, ownerScope(), code)
	require.ErrorIs(t, err, service.ErrAlreadyActivated)

	_, err = svc.ActivateLicense(ctx, client, "ZZZZ-ZZZZ-ZZZZ-ZZZZ")
	require.ErrorIs(t, err, service.ErrLicenseNotFound)

	_, err = svc.ActivateLicense(ctx, client, "nope")
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
}

func TestExportLicensesCSV(t *testing.T) {
	t.Parallel()
	_, svc, scope := activeReseller(t)
	ctx := context.Background()

	created, err := svc.GenerateLicenses(ctx, scope, service.GenerateRequest{Quantity: 3, PlanLevel: "pro", MaxScreens: 4})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportLicensesCSV(ctx, scope, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"code", "status", "plan_level", "max_screens", "activated_at", "created_at"}, rows[0])

	codes := []string{}
	for _, row := range rows[1:] {
		codes = append(codes, row[0])
		require.Equal(t, "available", row[1])
		require.Equal(t, "4", row[3])
		require.Empty(t, row[4])
	}
	want := []string{}
	for _, l := range created {
		want = append(want, l.Code)
	}
	require.ElementsMatch(t, want, codes)
}

func TestNonResellerReads(t *testing.T) {
	t.Parallel()
	svc := service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))

	_, err := svc.GetResellerAccount(context.Background(), ownerScope())
	require.ErrorIs(t, err, service.ErrNotReseller)
	_, err = svc.GetResellerAccount(context.Background(), tenant.Scope{})
	require.ErrorIs(t, err, tenant.ErrMissingScope)
}

func sequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", errors.New("sequence exhausted")
		}
		c := codes[i]
		i++
		return c, nil
	}
}
