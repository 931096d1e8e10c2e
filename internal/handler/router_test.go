package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/repository"
	"campus_api/internal/schema"
	"campus_api/internal/service"
	"campus_api/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminEmail = "root@campus.test"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	jwt    *utils.JWTUtil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg, err := schema.Default()
	require.NoError(t, err)

	store := repository.NewMemStore()
	jwtUtil := utils.NewJWTUtil(map[model.Role]string{
		model.RoleAnonymous: "anonymous-secret",
		model.RoleCustomer:  "customer-secret",
		model.RoleDeliverer: "deliverer-secret",
		model.RolePartner:   "partner-secret",
		model.RoleAdmin:     "admin-secret",
	}, 1)
	resources := service.NewResourceService(store, query.Options{DefaultLimit: 10, MaxLimit: 50})

	router, err := NewRouter(RouterConfig{
		Logger:         logger,
		Registry:       reg,
		Resources:      resources,
		Marketplace:    service.NewMarketplaceService(resources, store.Accounts(), reg, logger),
		Auth:           service.NewAuthService(store.Accounts(), jwtUtil, adminEmail, logger),
		Tokens:         jwtUtil,
		Accounts:       service.NewAccountChecker(store.Accounts(), 16, time.Minute),
		CORSOrigins:    []string{"*"},
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return &testEnv{router: router, jwt: jwtUtil}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token and id.
func (e *testEnv) register(t *testing.T, email string, role model.Role) (string, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": "password123", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp model.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.Account.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth_MemoryStore(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"memory"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	_, id := env.register(t, "Alice@Campus.test", model.RoleCustomer)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "alice@campus.test", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[model.AuthResponse](t, w)
	assert.Equal(t, id, resp.Account.ID)
	assert.NotContains(t, w.Body.String(), "password")

	claims, err := env.jwt.ValidateToken(resp.Token, model.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "alice@campus.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "alice@campus.test", "password": "password123", "role": "partner"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuth_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "x@campus.test", "password": "short", "role": "customer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[model.MessageResponse](t, w).Message, "Invalid request: ")

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"phone": "12345", "password": "password123", "role": "customer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"phone": "221770000000", "password": "password123", "role": "customer"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"password": "password123", "role": "customer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "boss@campus.test", "password": "password123", "role": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuth_AnonymousAndLogout(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/anonymous", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	token := decode[model.AuthResponse](t, w).Token

	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGate_TokenForDeletedOrUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.jwt.GenerateToken("ghost", model.RoleCustomer)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/v1/app/orders", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Token corrupted", decode[model.MessageResponse](t, w).Message)
}

func TestSchool_ReadsArePublicWritesNeedAdmin(t *testing.T) {
	env := newTestEnv(t)
	customer, _ := env.register(t, "c@campus.test", model.RoleCustomer)
	admin, _ := env.register(t, adminEmail, model.RoleCustomer)

	formation := gin.H{"codeFormation": "L3INFO", "nameFormation": "Licence informatique"}

	w := env.do(t, http.MethodPost, "/api/v1/school/formations", "", formation)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/school/formations", customer, formation)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/school/formations", admin, formation)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.Record](t, w)
	id := created.ID()
	require.NotEmpty(t, id)
	assert.NotContains(t, created, "isDeleted")

	w = env.do(t, http.MethodGet, "/api/v1/school/formations/"+id, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/school/formations/"+id, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/school/formations/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/school/formations/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	page := decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/school/formations", "", nil))
	assert.Zero(t, page.Total)
}

func TestSchool_ParentsAndAdmins(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.register(t, adminEmail, model.RoleCustomer)

	for _, path := range []string{"/api/v1/school/parents", "/api/v1/school/admins"} {
		w := env.do(t, http.MethodPost, path, "", gin.H{"user": "u1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = env.do(t, http.MethodPost, path, admin, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)

		w = env.do(t, http.MethodPost, path, admin, gin.H{"user": "u1"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "u1", decode[model.Record](t, w)["user"])

		w = env.do(t, http.MethodPost, path, admin, gin.H{"user": "u1"})
		assert.Equal(t, http.StatusConflict, w.Code, path)

		page := decode[model.Page](t, env.do(t, http.MethodGet, path+"?user=u1", "", nil))
		assert.Equal(t, int64(1), page.Total, path)
	}
}

func TestSchool_PointageFilterAndPagination(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.register(t, adminEmail, model.RoleCustomer)

	day := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, user := range []string{"u1", "u2", "u1", "u1"} {
		w := env.do(t, http.MethodPost, "/api/v1/school/pointages", admin, gin.H{
			"date": day.AddDate(0, 0, i), "user": user, "matiere": "m1",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	q := url.Values{"user": {"u1"}, "limit": {"2"}, "sort": {"date"}}
	w := env.do(t, http.MethodGet, "/api/v1/school/pointages?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[model.Page](t, w)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Results)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Data, 2)
	for _, rec := range page.Data {
		assert.Equal(t, "u1", rec["user"])
	}

	q = url.Values{"date[gte]": {"2024-03-03"}}
	page = decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/school/pointages?"+q.Encode(), "", nil))
	assert.Equal(t, int64(2), page.Total)

	page = decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/school/pointages?unknown=x", "", nil))
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Data)

	w = env.do(t, http.MethodGet, "/api/v1/school/pointages?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/school/pointages?sort=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/school/pointages", admin, gin.H{
		"date": time.Now().Add(48 * time.Hour), "user": "u1", "matiere": "m1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchool_EvaluationsByStudentAndMatiere(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.register(t, adminEmail, model.RoleCustomer)

	w := env.do(t, http.MethodPost, "/api/v1/school/evaluations", admin, gin.H{
		"teacher": "t1", "matiere": "m1", "student": "s1", "noteDS": 25,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, ev := range []gin.H{
		{"teacher": "t1", "matiere": "m1", "student": "s1", "noteDS": 12},
		{"teacher": "t1", "matiere": "m2", "student": "s1", "noteDS": 14},
		{"teacher": "t2", "matiere": "m1", "student": "s2", "noteDS": 9},
	} {
		w = env.do(t, http.MethodPost, "/api/v1/school/evaluations", admin, ev)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	page := decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/school/evaluations/student/s1/matiere/m1", "", nil))
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, 12.0, page.Data[0]["noteDS"])

	// Path parameters win over query filters on the same field.
	page = decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/school/evaluations/teacher/t1/matiere/m1?teacher=t2", "", nil))
	assert.Equal(t, int64(1), page.Total)
}

func TestMarketplace_OrderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	customer, customerID := env.register(t, "c@campus.test", model.RoleCustomer)
	deliverer, delivererID := env.register(t, "d@campus.test", model.RoleDeliverer)
	other, _ := env.register(t, "o@campus.test", model.RoleCustomer)

	w := env.do(t, http.MethodPost, "/api/v1/app/orders", deliverer, gin.H{"from": "A", "to": "B", "price": 1500})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/app/orders", customer, gin.H{"from": "A", "to": "B", "price": 1500})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[model.Record](t, w)
	assert.Equal(t, customerID, order["customer"])
	assert.Equal(t, model.OrderPending, order["status"])
	path := "/api/v1/app/orders/" + order.ID()

	w = env.do(t, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/app/products", customer, gin.H{"order": order.ID(), "name": "Books"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	available := decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/app/orders/available", deliverer, nil))
	assert.Equal(t, int64(1), available.Total)

	w = env.do(t, http.MethodPatch, path+"/accept", deliverer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, delivererID, decode[model.Record](t, w)["deliverer"])

	w = env.do(t, http.MethodPatch, path+"/accept", deliverer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/app/products", customer, gin.H{"order": order.ID(), "name": "Late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	mine := decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/app/orders", deliverer, nil))
	assert.Equal(t, int64(1), mine.Total)

	w = env.do(t, http.MethodPatch, path+"/deliver", deliverer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, path+"/cancel", customer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	notes := decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/app/notifications", customer, nil))
	require.Equal(t, int64(2), notes.Total)

	w = env.do(t, http.MethodPatch, "/api/v1/app/notifications/"+notes.Data[0].ID()+"/read", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.NotificationRead, decode[model.Record](t, w)["status"])

	w = env.do(t, http.MethodPatch, "/api/v1/app/notifications/"+notes.Data[0].ID()+"/read", deliverer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMarketplace_ProfilesAndAccountsAreIdentityBound(t *testing.T) {
	env := newTestEnv(t)
	partner, partnerID := env.register(t, "p@campus.test", model.RolePartner)
	_, otherID := env.register(t, "p2@campus.test", model.RolePartner)
	admin, _ := env.register(t, adminEmail, model.RoleCustomer)

	w := env.do(t, http.MethodPost, "/api/v1/app/partners", partner, gin.H{
		"companyName": "Acme", "companyAddress": "Dakar", "companyPhone": "221770000000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, partnerID, decode[model.Record](t, w)["account"])

	w = env.do(t, http.MethodGet, "/api/v1/app/partners/"+partnerID, partner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/app/partners/"+otherID, partner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/app/partners/"+partnerID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/app/partners", partner, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/app/accounts/"+partnerID, partner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode[model.Record](t, w), "password")

	accounts := decode[model.Page](t, env.do(t, http.MethodGet, "/api/v1/app/accounts", admin, nil))
	assert.Equal(t, int64(3), accounts.Total)
}

func TestMarketplace_AdminProfileWritesCheckTheAccount(t *testing.T) {
	env := newTestEnv(t)
	_, customerID := env.register(t, "c@campus.test", model.RoleCustomer)
	_, delivererID := env.register(t, "d@campus.test", model.RoleDeliverer)
	admin, _ := env.register(t, adminEmail, model.RoleCustomer)
	profile := gin.H{"vehicle": "scooter", "vehiclePlate": "DK-1234-A", "cni": "1751199900123", "driverLicense": "SN-889"}

	w := env.do(t, http.MethodPut, "/api/v1/app/deliverers/ghost", admin, profile)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/v1/app/deliverers/"+customerID, admin, profile)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/v1/app/deliverers/"+delivererID, admin, profile)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[model.Record](t, w)

	w = env.do(t, http.MethodDelete, "/api/v1/app/deliverers/"+delivererID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/v1/app/deliverers/"+delivererID, admin, profile)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEqual(t, first.ID(), decode[model.Record](t, w).ID())
}

func TestMarketplace_ContractStatus(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := env.register(t, "p@campus.test", model.RolePartner)
	deliverer, delivererID := env.register(t, "d@campus.test", model.RoleDeliverer)

	start := time.Now().UTC().Truncate(time.Second)
	w := env.do(t, http.MethodPost, "/api/v1/app/contracts", partner, gin.H{
		"deliverer": delivererID, "startDate": start, "endDate": start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/app/contracts", partner, gin.H{
		"deliverer": delivererID, "startDate": start, "endDate": start.AddDate(0, 1, 0),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	path := "/api/v1/app/contracts/" + decode[model.Record](t, w).ID() + "/status"

	w = env.do(t, http.MethodPatch, path, partner, gin.H{"status": "active"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, path, deliverer, gin.H{"status": "active"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, path, deliverer, gin.H{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPatch, path, partner, gin.H{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
