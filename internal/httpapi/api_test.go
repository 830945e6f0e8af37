package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"jamaat.org/internal/auth"
	"jamaat.org/internal/ids"
	"jamaat.org/internal/listing"
	"jamaat.org/internal/obs"
	"jamaat.org/internal/store/memory"
)

func TestMain(m *testing.M) {
	obs.Init(obs.LogConfig{Output: io.Discard})
	os.Exit(m.Run())
}

const testSecret = "test-secret"

type testEnv struct {
	api     *API
	handler http.Handler
	store   *memory.Store
	auth    *auth.Service
	listing *listing.Service
	tokens  *auth.TokenService
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	store := memory.New()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	tokens := auth.NewTokenService(secret)
	authSvc, err := auth.NewService(store, hasher, tokens)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	listingSvc, err := listing.NewService(store)
	if err != nil {
		t.Fatalf("listing.NewService: %v", err)
	}
	api, err := New(Options{Auth: authSvc, Listing: listingSvc, Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{
		api:     api,
		handler: api.Handler(),
		store:   store,
		auth:    authSvc,
		listing: listingSvc,
		tokens:  tokens,
	}
}

func (e *testEnv) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) mosque(t *testing.T, name string) *listing.Mosque {
	t.Helper()
	m, err := e.listing.CreateMosque(context.Background(), listing.NewMosque{
		Name:        name,
		Address:     "1 Main St",
		Coordinates: []float64{38.76, 9.03},
	})
	if err != nil {
		t.Fatalf("CreateMosque: %v", err)
	}
	return m
}

func (e *testEnv) event(t *testing.T, mosqueID, organiser string, capacity int) *listing.Event {
	t.Helper()
	ev, err := e.listing.CreateEvent(context.Background(), listing.NewEvent{
		Title:       "Tafsir Circle",
		Description: "weekly",
		Date:        time.Now().Add(24 * time.Hour),
		Image:       "img.png",
		Capacity:    capacity,
		Mosque:      mosqueID,
		Organiser:   organiser,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return ev
}

func expectMessage(t *testing.T, rr *httptest.ResponseRecorder, code int, msg string) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("expected %d, got %d (%s)", code, rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	if body["message"] != msg {
		t.Fatalf("expected message %q, got %v", msg, body["message"])
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testSecret)
	rr := env.do(t, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "Server is up and running!" {
		t.Fatalf("unexpected health response %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestReadyReportsMissingSecret(t *testing.T) {
	env := newTestEnv(t, "")
	rr := env.do(t, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, testSecret)
	expectMessage(t, env.do(t, http.MethodGet, "/api/nothing", "", nil), http.StatusNotFound, "Route not found")
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t, testSecret)
	reg := map[string]string{
		"firstName": "Amina",
		"lastName":  "Yusuf",
		"username":  "amina",
		"email":     " Amina@Example.com ",
		"password":  "pa55word",
	}

	rr := env.do(t, http.MethodPost, "/api/auth/register", "", reg)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	var created map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if created["message"] != "User registered successfully" || created["userId"] == "" {
		t.Fatalf("unexpected register body: %v", created)
	}

	expectMessage(t, env.do(t, http.MethodPost, "/api/auth/register", "", reg), http.StatusBadRequest, "User already exists")

	missing := map[string]string{"firstName": "x", "email": "x@example.com"}
	expectMessage(t, env.do(t, http.MethodPost, "/api/auth/register", "", missing), http.StatusBadRequest, "All fields are required")

	expectMessage(t, env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "amina@example.com"}),
		http.StatusBadRequest, "Email and password are required")
	expectMessage(t, env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "amina@example.com", "password": "nope"}),
		http.StatusUnauthorized, "Invalid credentials")
	expectMessage(t, env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "pa55word"}),
		http.StatusUnauthorized, "Invalid credentials")

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "amina@example.com", "password": "pa55word"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Message != "Login successful!" || login.Token == "" || login.User.Role != auth.RoleUser || login.User.Username != "amina" {
		t.Fatalf("unexpected login body: %+v", login)
	}

	id, err := env.tokens.Verify(login.Token)
	if err != nil || id.ID != login.User.ID || id.Role != auth.RoleUser {
		t.Fatalf("issued token does not carry the user: %+v %v", id, err)
	}

	rr = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rr.Code)
	}
	var me map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &me)
	if me["email"] != "amina@example.com" || me["id"] != login.User.ID {
		t.Fatalf("unexpected me body: %v", me)
	}
	if _, leaked := me["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialised")
	}
}

func TestLoginWithoutSecret(t *testing.T) {
	env := newTestEnv(t, "")
	reg := map[string]string{"firstName": "A", "lastName": "B", "username": "ab", "email": "ab@example.com", "password": "pw"}
	if rr := env.do(t, http.MethodPost, "/api/auth/register", "", reg); rr.Code != http.StatusCreated {
		t.Fatalf("register: %d", rr.Code)
	}
	expectMessage(t, env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ab@example.com", "password": "pw"}),
		http.StatusInternalServerError, "JWT secret is not configured")
}

func TestListEventsPaging(t *testing.T) {
	env := newTestEnv(t, testSecret)
	m := env.mosque(t, "Central")
	for i := 0; i < 3; i++ {
		env.event(t, m.ID, "organiser", 0)
	}

	rr := env.do(t, http.MethodGet, "/api/events?limit=2&page=2&keyword=TAFSIR&upcoming=true", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var page listing.EventPage
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.CurrentPage != 2 || page.TotalPages != 2 || page.TotalEvents != 3 || len(page.Events) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Events[0].MosqueDetails == nil || page.Events[0].MosqueDetails.Name != "Central" {
		t.Fatalf("expected mosque details, got %+v", page.Events[0].MosqueDetails)
	}
}

func TestGetMissingResources(t *testing.T) {
	env := newTestEnv(t, testSecret)
	expectMessage(t, env.do(t, http.MethodGet, "/api/events/"+ids.New(), "", nil), http.StatusNotFound, "Event not found")
	expectMessage(t, env.do(t, http.MethodGet, "/api/events/not-an-id", "", nil), http.StatusNotFound, "Event not found")
	expectMessage(t, env.do(t, http.MethodGet, "/api/mosques/"+ids.New(), "", nil), http.StatusNotFound, "Mosque not found")
}

func TestAssignRole(t *testing.T) {
	env := newTestEnv(t, testSecret)
	ctx := context.Background()
	m := env.mosque(t, "Central")
	u, err := env.auth.Register(ctx, auth.Registration{FirstName: "A", LastName: "B", Username: "imam", Email: "imam@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	super := env.token(t, auth.Identity{ID: "root", Role: auth.RoleSuperAdmin})
	path := "/api/users/" + u.ID + "/role"

	rr := env.do(t, http.MethodPut, path, env.token(t, auth.Identity{ID: "x", Role: auth.RoleMosqueAdmin, AssignedMosque: m.ID}),
		map[string]string{"role": "super_admin"})
	expectMessage(t, rr, http.StatusForbidden, "Role (mosque_admin) is not authorized to access this resource")

	expectMessage(t, env.do(t, http.MethodPut, path, super, map[string]string{"role": "imam"}), http.StatusBadRequest, "Unknown role")
	expectMessage(t, env.do(t, http.MethodPut, path, super, map[string]string{"role": "mosque_admin", "assignedMosque": ids.New()}),
		http.StatusNotFound, "Mosque not found")

	rr = env.do(t, http.MethodPut, path, super, map[string]string{"role": "mosque_admin", "assignedMosque": m.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	sess, err := env.auth.Login(ctx, "imam@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.Role != auth.RoleMosqueAdmin || sess.User.AssignedMosque != m.ID {
		t.Fatalf("role not persisted: %+v", sess.User)
	}
}
