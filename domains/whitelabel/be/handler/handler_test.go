package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/whitelabel/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/tenant"
)

type mockService struct {
	listFn     func(ctx context.Context, scope tenant.Scope) ([]service.Domain, error)
	addFn      func(ctx context.Context, scope tenant.Scope, name string) (service.Domain, service.VerificationInstruction, error)
	verifyFn   func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.VerifyResult, error)
	primaryFn  func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Domain, error)
	removeFn   func(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	brandingFn func(ctx context.Context, scope tenant.Scope) (service.Branding, error)
	saveFn     func(ctx context.Context, scope tenant.Scope, b service.Branding) (service.Branding, error)
	logoFn     func(ctx context.Context, scope tenant.Scope, contentType string, body io.Reader) (service.Branding, error)
}

func (m *mockService) ListDomains(ctx context.Context, scope tenant.Scope) ([]service.Domain, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, scope)
}

func (m *mockService) AddDomain(ctx context.Context, scope tenant.Scope, name string) (service.Domain, service.VerificationInstruction, error) {
	if m.addFn == nil {
		panic("addFn not configured")
	}
	return m.addFn(ctx, scope, name)
}

func (m *mockService) VerifyDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.VerifyResult, error) {
	if m.verifyFn == nil {
		panic("verifyFn not configured")
	}
	return m.verifyFn(ctx, scope, id)
}

func (m *mockService) SetPrimaryDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Domain, error) {
	if m.primaryFn == nil {
		panic("primaryFn not configured")
	}
	return m.primaryFn(ctx, scope, id)
}

func (m *mockService) RemoveDomain(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if m.removeFn == nil {
		panic("removeFn not configured")
	}
	return m.removeFn(ctx, scope, id)
}

func (m *mockService) GetBranding(ctx context.Context, scope tenant.Scope) (service.Branding, error) {
	if m.brandingFn == nil {
		panic("brandingFn not configured")
	}
	return m.brandingFn(ctx, scope)
}

func (m *mockService) SaveBranding(ctx context.Context, scope tenant.Scope, b service.Branding) (service.Branding, error) {
	if m.saveFn == nil {
		panic("saveFn not configured")
	}
	return m.saveFn(ctx, scope, b)
}

func (m *mockService) UploadLogo(ctx context.Context, scope tenant.Scope, contentType string, body io.Reader) (service.Branding, error) {
	if m.logoFn == nil {
		panic("logoFn not configured")
	}
	return m.logoFn(ctx, scope, contentType, body)
}

var testScope = tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleOwner}

func serve(t *testing.T, svc service.Service, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	New(svc, zaptest.NewLogger(t)).Register(r)
	req = req.WithContext(tenant.WithScope(req.Context(), testScope))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func do(t *testing.T, svc service.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, svc, httptest.NewRequest(method, target, strings.NewReader(body)))
}

func TestAddDomainIncludesInstruction(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		addFn: func(ctx context.Context, scope tenant.Scope, name string) (service.Domain, service.VerificationInstruction, error) {
			d := service.Domain{ID: uuid.New(), DomainName: name, VerificationToken: "abc"}
			return d, d.Instruction(), nil
		},
	}
	rec := do(t, svc, http.MethodPost, "/domains", `{"domainName":"tv.example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body domainDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "TXT", body.Instruction.RecordType)
	require.Equal(t, "_bizscreen-verify.tv.example.com", body.Instruction.Host)
	require.Equal(t, "bizscreen-verify=abc", body.Instruction.Value)
}

func TestVerifyFailureIsOK(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		verifyFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.VerifyResult, error) {
			return service.VerifyResult{Domain: service.Domain{ID: id}, Reason: "no TXT record found"}, nil
		},
	}
	rec := do(t, svc, http.MethodPost, "/domains/"+uuid.NewString()+"/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"verified":false`)
	require.Contains(t, rec.Body.String(), "no TXT record found")
}

func TestDomainErrorMapping(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		primaryFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID) (service.Domain, error) {
			return service.Domain{}, service.ErrNotVerified
		},
		removeFn: func(ctx context.Context, scope tenant.Scope, id uuid.UUID) error { return service.ErrPrimaryRemoval },
	}
	id := uuid.NewString()
	require.Equal(t, http.StatusUnprocessableEntity, do(t, svc, http.MethodPost, "/domains/"+id+"/primary", "").Code)
	require.Equal(t, http.StatusConflict, do(t, svc, http.MethodDelete, "/domains/"+id, "").Code)
}

func TestUploadLogo(t *testing.T) {
	t.Parallel()
	svc := &mockService{
		logoFn: func(ctx context.Context, scope tenant.Scope, contentType string, body io.Reader) (service.Branding, error) {
			require.Equal(t, "image/png", contentType)
			raw, err := io.ReadAll(body)
			require.NoError(t, err)
			require.Equal(t, "png-bytes", string(raw))
			return service.Branding{ProductName: "Acme", LogoURL: "https://cdn/logo.png"}, nil
		},
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="logo"; filename="logo.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/branding/logo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(t, svc, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "https://cdn/logo.png")

	rec = do(t, svc, http.MethodPost, "/branding/logo", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveBrandingValidates(t *testing.T) {
	t.Parallel()
	rec := do(t, &mockService{}, http.MethodPut, "/branding", `{"primaryColor":"#000000"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
