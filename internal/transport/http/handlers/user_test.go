package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/infra/config"
	"github.com/mlinyun/user-center/internal/infra/security"
	"github.com/mlinyun/user-center/internal/repository"
	httproutes "github.com/mlinyun/user-center/internal/transport/http/routes"
	"github.com/mlinyun/user-center/internal/usecase"
)

type memUserRepo struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]*domain.User
	lastFilter domain.UserFilter
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*domain.User)}
}

func (m *memUserRepo) Create(_ context.Context, user domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.Deleted && (u.Account == user.Account || u.PlanetCode == user.PlanetCode) {
			return 0, repository.ErrDuplicate
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = &user
	return user.ID, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Deleted {
		return nil, repository.ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (m *memUserRepo) GetByAccount(_ context.Context, account string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.Deleted && u.Account == account {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) ExistsByAccountOrPlanetCode(_ context.Context, account, planetCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.Deleted && (u.Account == account || u.PlanetCode == planetCode) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserRepo) Update(_ context.Context, update domain.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[update.ID]
	if !ok || u.Deleted {
		return repository.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.AvatarURL != nil {
		u.AvatarURL = *update.AvatarURL
	}
	if update.Profile != nil {
		u.Profile = *update.Profile
	}
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Deleted {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUserRepo) UpdateStatus(_ context.Context, id int64, status domain.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Deleted {
		return repository.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *memUserRepo) SoftDelete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Deleted {
		return repository.ErrNotFound
	}
	u.Deleted = true
	return nil
}

func (m *memUserRepo) List(_ context.Context, filter domain.UserFilter, _ domain.Page) ([]domain.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if !u.Deleted {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Principal
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]domain.Principal)}
}

func (m *memSessionStore) Get(_ context.Context, sessionID string) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := p
	return &copy, nil
}

func (m *memSessionStore) Set(_ context.Context, sessionID string, principal domain.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = principal
	return nil
}

func (m *memSessionStore) Remove(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

type apiHarness struct {
	router *gin.Engine
	repo   *memUserRepo
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemUserRepo()
	sessions := newMemSessionStore()
	log := zap.NewNop()

	registration := usecase.NewRegistrationService(repo, nil, log, security.MinCost)
	auth := usecase.NewAuthService(repo, sessions, nil, log, security.MinCost)
	users := usecase.NewUserService(repo, nil, log, security.MinCost)

	cfg := &config.AppConfig{
		App:     config.AppSettings{Env: "test"},
		Session: config.SessionSettings{CookieName: "uc_session", TTL: time.Hour},
	}

	router := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: log,
		Services: httproutes.ServiceSet{
			Registration: registration,
			Auth:         auth,
			Users:        users,
		},
	})

	return &apiHarness{router: router, repo: repo}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func registerPayload() map[string]string {
	return map[string]string{
		"userAccount":   "LingYun",
		"userPassword":  "Password..1234",
		"checkPassword": "Password..1234",
		"planetCode":    "00003",
	}
}

func TestRegisterEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	rr := h.do(t, http.MethodPost, "/api/v1/user/register", registerPayload(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID <= 0 {
		t.Fatalf("expected a positive id, got %d", resp.ID)
	}

	stored := h.repo.users[resp.ID]
	if stored == nil || stored.Role != domain.RoleUser || stored.Status != domain.UserStatusActive {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestRegisterEndpointRejectsWeakPassword(t *testing.T) {
	h := newAPIHarness(t)

	payload := registerPayload()
	payload["userPassword"] = "12345678"
	payload["checkPassword"] = "12345678"

	rr := h.do(t, http.MethodPost, "/api/v1/user/register", payload, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "uppercase") {
		t.Fatalf("expected a strength message, got %s", rr.Body.String())
	}
	if len(h.repo.users) != 0 {
		t.Fatalf("store must be unchanged on rejection")
	}
}

func TestLoginCurrentLogoutFlow(t *testing.T) {
	h := newAPIHarness(t)

	if rr := h.do(t, http.MethodPost, "/api/v1/user/register", registerPayload(), nil); rr.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", rr.Code, rr.Body.String())
	}

	login := map[string]string{"userAccount": "LingYun", "userPassword": "Password..1234"}
	rr := h.do(t, http.MethodPost, "/api/v1/user/login", login, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected a session cookie on login")
	}
	if strings.Contains(rr.Body.String(), "userPassword") || strings.Contains(rr.Body.String(), "$2a$") {
		t.Fatalf("login response leaks credential material: %s", rr.Body.String())
	}

	rr = h.do(t, http.MethodGet, "/api/v1/user/current", nil, cookies)
	if rr.Code != http.StatusOK {
		t.Fatalf("current failed: %d %s", rr.Code, rr.Body.String())
	}
	var principal domain.Principal
	if err := json.Unmarshal(rr.Body.Bytes(), &principal); err != nil {
		t.Fatalf("decode principal: %v", err)
	}
	if principal.Account != "LingYun" || principal.ID <= 0 {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if rr = h.do(t, http.MethodPost, "/api/v1/user/logout", nil, cookies); rr.Code != http.StatusOK {
		t.Fatalf("logout failed: %d %s", rr.Code, rr.Body.String())
	}
	if rr = h.do(t, http.MethodPost, "/api/v1/user/logout", nil, cookies); rr.Code != http.StatusBadRequest {
		t.Fatalf("double logout must fail with 400, got %d", rr.Code)
	}
	if rr = h.do(t, http.MethodGet, "/api/v1/user/current", nil, cookies); rr.Code != http.StatusUnauthorized {
		t.Fatalf("current after logout must be 401, got %d", rr.Code)
	}
}

// Login failures for an unknown account and a wrong password must be
// byte-identical so the endpoint cannot be used for account enumeration.
func TestLoginErrorUniformity(t *testing.T) {
	h := newAPIHarness(t)
	h.do(t, http.MethodPost, "/api/v1/user/register", registerPayload(), nil)

	unknown := h.do(t, http.MethodPost, "/api/v1/user/login",
		map[string]string{"userAccount": "nonexistent", "userPassword": "whatever12345"}, nil)
	wrongPass := h.do(t, http.MethodPost, "/api/v1/user/login",
		map[string]string{"userAccount": "LingYun", "userPassword": "wrongpass123"}, nil)

	if unknown.Code != http.StatusBadRequest || wrongPass.Code != http.StatusBadRequest {
		t.Fatalf("expected 400/400, got %d/%d", unknown.Code, wrongPass.Code)
	}

	var a, b struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(unknown.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(wrongPass.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Error == "" || a.Error != b.Error {
		t.Fatalf("error messages differ: %q vs %q", a.Error, b.Error)
	}
}

// A session identifier planted before authentication must not survive login;
// the server issues a fresh one and only that one names the session.
func TestLoginIssuesFreshSessionID(t *testing.T) {
	h := newAPIHarness(t)
	h.do(t, http.MethodPost, "/api/v1/user/register", registerPayload(), nil)

	planted := []*http.Cookie{{Name: "uc_session", Value: "planted-before-auth"}}
	rr := h.do(t, http.MethodPost, "/api/v1/user/login",
		map[string]string{"userAccount": "LingYun", "userPassword": "Password..1234"}, planted)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}

	issued := rr.Result().Cookies()
	if len(issued) != 1 || issued[0].Name != "uc_session" {
		t.Fatalf("expected one fresh session cookie, got %v", issued)
	}
	if issued[0].Value == "planted-before-auth" {
		t.Fatalf("presented identifier must not survive login")
	}

	if rr = h.do(t, http.MethodGet, "/api/v1/user/current", nil, planted); rr.Code != http.StatusUnauthorized {
		t.Fatalf("planted identifier must stay anonymous, got %d", rr.Code)
	}
	if rr = h.do(t, http.MethodGet, "/api/v1/user/current", nil, issued); rr.Code != http.StatusOK {
		t.Fatalf("rotated identifier must name the session, got %d", rr.Code)
	}
}

func TestPasswordAdvisoryEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	rr := h.do(t, http.MethodPost, "/api/v1/user/password/strength",
		map[string]string{"password": "Comp1ex!pwd"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("strength failed: %d %s", rr.Code, rr.Body.String())
	}
	var strength struct {
		Strength string `json:"strength"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &strength); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strength.Strength != "strong" {
		t.Fatalf("expected strong, got %q", strength.Strength)
	}

	rr = h.do(t, http.MethodGet, "/api/v1/user/password/generate?length=12", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("generate failed: %d %s", rr.Code, rr.Body.String())
	}
	var generated struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &generated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(generated.Password) != 12 || !security.IsStrong(generated.Password) {
		t.Fatalf("generated password must be 12 chars and strong, got %q", generated.Password)
	}

	rr = h.do(t, http.MethodGet, "/api/v1/user/password/generate?length=4", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a sub-minimum length, got %d", rr.Code)
	}
}

func TestAdminGateRejectsRegularUser(t *testing.T) {
	h := newAPIHarness(t)
	h.do(t, http.MethodPost, "/api/v1/user/register", registerPayload(), nil)

	rr := h.do(t, http.MethodPost, "/api/v1/user/login",
		map[string]string{"userAccount": "LingYun", "userPassword": "Password..1234"}, nil)
	cookies := rr.Result().Cookies()

	rr = h.do(t, http.MethodGet, "/api/v1/admin/users", nil, cookies)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a regular user, got %d", rr.Code)
	}

	// Not logged in at all reads as 401, not 403.
	rr = h.do(t, http.MethodGet, "/api/v1/admin/users", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rr.Code)
	}
}

// seedAdminSession plants an admin account directly (role elevation has no
// self-service path) and returns the cookies of a logged-in admin session.
func seedAdminSession(t *testing.T, h *apiHarness) []*http.Cookie {
	t.Helper()
	hash, err := security.HashPasswordWithCost("Admin!Pass99", security.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h.repo.nextID++
	h.repo.users[h.repo.nextID] = &domain.User{
		ID:           h.repo.nextID,
		Account:      "root_admin",
		PasswordHash: hash,
		PlanetCode:   "00001",
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
	}

	rr := h.do(t, http.MethodPost, "/api/v1/user/login",
		map[string]string{"userAccount": "root_admin", "userPassword": "Admin!Pass99"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin login failed: %d %s", rr.Code, rr.Body.String())
	}
	return rr.Result().Cookies()
}

func TestAdminConsoleFlow(t *testing.T) {
	h := newAPIHarness(t)
	cookies := seedAdminSession(t, h)

	// Confirmation mismatch is rejected before any write.
	rr := h.do(t, http.MethodPost, "/api/v1/admin/users", map[string]string{
		"userAccount":   "managed",
		"userPassword":  "Password..1234",
		"checkPassword": "Password..9999",
		"planetCode":    "00077",
	}, cookies)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("mismatched confirmation must fail with 400, got %d", rr.Code)
	}

	rr = h.do(t, http.MethodPost, "/api/v1/admin/users", map[string]string{
		"userAccount":   "managed",
		"userPassword":  "Password..1234",
		"checkPassword": "Password..1234",
		"planetCode":    "00077",
	}, cookies)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin create failed: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = h.do(t, http.MethodPost, "/api/v1/admin/users/"+itoa(created.ID)+"/status",
		map[string]string{"userStatus": "banned"}, cookies)
	if rr.Code != http.StatusOK {
		t.Fatalf("ban failed: %d %s", rr.Code, rr.Body.String())
	}

	// Banning an already banned account is a no-op the API rejects.
	rr = h.do(t, http.MethodPost, "/api/v1/admin/users/"+itoa(created.ID)+"/status",
		map[string]string{"userStatus": "banned"}, cookies)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("redundant ban must fail with 400, got %d", rr.Code)
	}

	rr = h.do(t, http.MethodDelete, "/api/v1/admin/users/"+itoa(created.ID), nil, cookies)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rr.Code, rr.Body.String())
	}
	if !h.repo.users[created.ID].Deleted {
		t.Fatalf("expected a soft delete, record gone or untouched")
	}

	rr = h.do(t, http.MethodGet, "/api/v1/admin/users/"+itoa(created.ID), nil, cookies)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted user must read as 404, got %d", rr.Code)
	}
}

func TestAdminListForwardsFilters(t *testing.T) {
	h := newAPIHarness(t)
	cookies := seedAdminSession(t, h)

	rr := h.do(t, http.MethodGet,
		"/api/v1/admin/users?id=3&userGender=2&userPhone=13812345678&userEmail=lingyun%40example.com", nil, cookies)
	if rr.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", rr.Code, rr.Body.String())
	}

	filter := h.repo.lastFilter
	if filter.ID != 3 {
		t.Fatalf("expected id filter 3, got %d", filter.ID)
	}
	if filter.Gender == nil || *filter.Gender != domain.GenderFemale {
		t.Fatalf("expected gender filter to be forwarded, got %v", filter.Gender)
	}
	if filter.Phone != "13812345678" || filter.Email != "lingyun@example.com" {
		t.Fatalf("expected contact filters to be forwarded, got %+v", filter)
	}
}
