package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bizscreen/console/domains/scenes/be/repo"
	"github.com/bizscreen/console/domains/scenes/be/service"
	platformauth "github.com/bizscreen/console/platform/go/auth"
	"github.com/bizscreen/console/platform/go/httpapi"
	"github.com/bizscreen/console/platform/go/tenant"
)

func router(t *testing.T) (chi.Router, tenant.Scope) {
	t.Helper()
	svc := service.New(repo.NewMemoryRepository(), nil, zaptest.NewLogger(t))
	r := chi.NewRouter()
	New(svc, zaptest.NewLogger(t)).Register(r)
	return r, tenant.Scope{TenantID: uuid.New(), UserID: "u", Role: platformauth.RoleOwner}
}

func call(t *testing.T, r chi.Router, scope tenant.Scope, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(tenant.WithScope(context.Background(), scope))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreatePublishAndList(t *testing.T) {
	t.Parallel()

	r, scope := router(t)

	rec := call(t, r, scope, http.MethodPost, "/scenes", `{"name":"Happy hour","businessType":"bar"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var scene sceneDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scene))

	rec = call(t, r, scope, http.MethodPost, "/screens", `{"name":"Bar TV"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var screen screenDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &screen))

	rec = call(t, r, scope, http.MethodPost, "/scenes/"+scene.ID.String()+"/publish", `{"screenIds":["`+screen.ID.String()+`"]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(t, r, scope, http.MethodGet, "/scenes?page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page httpapi.Page[sceneDTO]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.TotalCount)
	require.Equal(t, 12, page.PageSize)
	require.Equal(t, 1, page.Items[0].DeviceCount)
}

func TestPublishUnknownScreen(t *testing.T) {
	t.Parallel()

	r, scope := router(t)
	rec := call(t, r, scope, http.MethodPost, "/scenes", `{"name":"Promo","businessType":"retail"}`)
	var scene sceneDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scene))

	rec = call(t, r, scope, http.MethodPost, "/scenes/"+scene.ID.String()+"/publish", `{"screenIds":["`+uuid.NewString()+`"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, r, scope, http.MethodGet, "/scenes/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
