package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	adapthttp "bookstore/internal/adapter/http"
	"bookstore/internal/adapter/memory"
	"bookstore/internal/app"
	"bookstore/internal/domain"
	"bookstore/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

// ---------------------------------------------------------------------------
// Mock repositories (function-fields pattern)
// ---------------------------------------------------------------------------

type mockCatalogRepo struct {
	listFn     func(ctx context.Context, f domain.BookFilter) ([]domain.Book, error)
	getFn      func(ctx context.Context, id int64) (*domain.Book, error)
	searchFn   func(ctx context.Context, q string) ([]domain.Book, error)
	byFormatFn func(ctx context.Context, format string) ([]domain.Book, error)
}

func (m *mockCatalogRepo) ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return []domain.Book{{ID: 1, Title: "Snow", Price: 17.95, Format: domain.FormatPhysical}}, nil
}

func (m *mockCatalogRepo) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCatalogRepo) SearchBooks(ctx context.Context, q string) ([]domain.Book, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return []domain.Book{{ID: 2, Title: q}}, nil
}

func (m *mockCatalogRepo) NewestBooks(ctx context.Context, limit int) ([]domain.Book, error) {
	return nil, nil
}

func (m *mockCatalogRepo) BooksByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error) {
	return nil, nil
}

func (m *mockCatalogRepo) BooksByGenre(ctx context.Context, genreID int64) ([]domain.Book, error) {
	return nil, nil
}

func (m *mockCatalogRepo) BooksByFormat(ctx context.Context, format string) ([]domain.Book, error) {
	if m.byFormatFn != nil {
		return m.byFormatFn(ctx, format)
	}
	return nil, nil
}

func (m *mockCatalogRepo) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	return []domain.Author{{ID: 1, FirstName: "Orhan", LastName: "Pamuk"}}, nil
}

func (m *mockCatalogRepo) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	return nil, nil
}

func (m *mockCatalogRepo) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return nil, nil
}

func (m *mockCatalogRepo) GetGenre(ctx context.Context, id int64) (*domain.Genre, error) {
	return &domain.Genre{ID: id, Name: "Fiction"}, nil
}

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testOpts struct {
	catalog   *mockCatalogRepo
	configure func(*adapthttp.Server)
}

func newTestServer(t *testing.T, opts testOpts) *httptest.Server {
	t.Helper()

	if opts.catalog == nil {
		opts.catalog = &mockCatalogRepo{}
	}

	store := memory.New()
	tokens := app.NewTokenIssuer("test-secret", time.Minute, time.Hour)
	authSvc := app.NewAuthService(store, store.NewSessionRepo(), tokens).WithHashCost(bcrypt.MinCost)
	profileSvc := app.NewProfileService(store).WithHashCost(bcrypt.MinCost)

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := adapthttp.New(app.NewCatalogService(opts.catalog), authSvc, profileSvc, nil, webDir)
	if opts.configure != nil {
		opts.configure(srv)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	var l []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return l
}

func postJSON(t *testing.T, url string, body any, headers ...string) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

var registration = map[string]string{
	"username":  "reader",
	"firstName": "Ada",
	"lastName":  "Reed",
	"email":     "ada@example.com",
	"password":  "Reader1!pw",
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "OK" {
		t.Fatalf("expected status=OK, got %v", body["status"])
	}
}

func TestListBooks_PassesFilter(t *testing.T) {
	var got domain.BookFilter
	ts := newTestServer(t, testOpts{catalog: &mockCatalogRepo{
		listFn: func(_ context.Context, f domain.BookFilter) ([]domain.Book, error) {
			got = f
			return []domain.Book{{ID: 3, Title: "Dune", Format: domain.FormatEBook}}, nil
		},
	}})

	resp, err := http.Get(ts.URL + "/api/books?title=dune&author=herbert&format=e_book&page=1&size=5")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got.Title != "dune" || got.Author != "herbert" || got.Format != domain.FormatEBook || got.Page != 1 || got.Size != 5 {
		t.Fatalf("unexpected filter %+v", got)
	}
	books := decodeList(t, resp)
	if len(books) != 1 || books[0]["title"] != "Dune" {
		t.Fatalf("unexpected books %v", books)
	}
}

func TestListBooks_InvalidFormat(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	resp, err := http.Get(ts.URL + "/api/books?format=scroll")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetBook(t *testing.T) {
	ts := newTestServer(t, testOpts{catalog: &mockCatalogRepo{
		getFn: func(_ context.Context, id int64) (*domain.Book, error) {
			if id == 7 {
				return &domain.Book{ID: 7, Title: "Snow"}, nil
			}
			return nil, nil
		},
	}})

	tests := []struct {
		path   string
		status int
	}{
		{"/api/books/7", http.StatusOK},
		{"/api/books/8", http.StatusNotFound},
		{"/api/books/abc", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tc.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if tc.status == http.StatusNotFound {
				if body := decodeBody(t, resp); body["error"] != "book not found" {
					t.Fatalf("unexpected error body %v", body)
				}
			}
		})
	}
}

func TestSearchRoutes(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	for _, p := range []string{"/api/books/search?q=snow", "/api/search?q=snow"} {
		resp, err := http.Get(ts.URL + p)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		books := decodeList(t, resp)
		resp.Body.Close() //nolint:errcheck
		if len(books) != 1 || books[0]["title"] != "snow" {
			t.Errorf("%s: unexpected books %v", p, books)
		}
	}
}

func TestBooksByFormatRoute(t *testing.T) {
	var got string
	ts := newTestServer(t, testOpts{catalog: &mockCatalogRepo{
		byFormatFn: func(_ context.Context, format string) ([]domain.Book, error) {
			got = format
			return nil, nil
		},
	}})

	resp, err := http.Get(ts.URL + "/api/books/format/audiobook")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK || got != domain.FormatAudiobook {
		t.Fatalf("expected 200 with AUDIOBOOK, got %d / %q", resp.StatusCode, got)
	}
	if books := decodeList(t, resp); books == nil {
		t.Fatal("expected [] not null")
	}
}

func TestAuthorsAndGenresRoutes(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	resp, err := http.Get(ts.URL + "/api/authors")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	authors := decodeList(t, resp)
	resp.Body.Close() //nolint:errcheck
	if len(authors) != 1 || authors[0]["lastName"] != "Pamuk" {
		t.Fatalf("unexpected authors %v", authors)
	}

	resp, err = http.Get(ts.URL + "/api/authors/5")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/genres/2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if body := decodeBody(t, resp); body["name"] != "Fiction" {
		t.Fatalf("unexpected genre %v", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/books"},
		{http.MethodDelete, "/api/books/1"},
		{http.MethodGet, "/auth/login"},
		{http.MethodPut, "/auth/refresh"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req, _ := http.NewRequest(rt.method, ts.URL+rt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Errorf("expected 405, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	resp := postJSON(t, ts.URL+"/auth/register", registration)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	resp.Body.Close() //nolint:errcheck
	if body["message"] == "" || body["data"] == nil {
		t.Fatalf("unexpected register body %v", body)
	}

	resp = postJSON(t, ts.URL+"/auth/register", registration)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/auth/login", map[string]string{"username": "reader", "password": "Reader1!pw"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	login := decodeBody(t, resp)
	resp.Body.Close() //nolint:errcheck
	access, _ := login["accessToken"].(string)
	refresh, _ := login["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("expected tokens, got %v", login)
	}
	if customer, _ := login["customer"].(map[string]any); customer["username"] != "reader" || customer["PasswordHash"] != nil {
		t.Fatalf("unexpected customer %v", login["customer"])
	}

	resp = getWithToken(t, ts.URL+"/api/profile", access)
	profile := decodeBody(t, resp)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK || profile["email"] != "ada@example.com" {
		t.Fatalf("profile: got %d %v", resp.StatusCode, profile)
	}

	resp = postJSON(t, ts.URL+"/auth/refresh", map[string]string{"refreshToken": refresh})
	refreshed := decodeBody(t, resp)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK || refreshed["accessToken"] == "" {
		t.Fatalf("refresh: got %d %v", resp.StatusCode, refreshed)
	}

	resp = postJSON(t, ts.URL+"/auth/logout", map[string]string{"refreshToken": refresh})
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/auth/refresh", map[string]string{"refreshToken": refresh})
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	resp := postJSON(t, ts.URL+"/auth/login", map[string]string{"username": "ghost", "password": "nope"})
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != app.ErrInvalidCredentials.Error() {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestRegister_Validation(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	weak := map[string]string{}
	for k, v := range registration {
		weak[k] = v
	}
	weak["password"] = "password"

	resp := postJSON(t, ts.URL+"/auth/register", weak)
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestProfile_RequiresBearer(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	for _, token := range []string{"", "not-a-jwt"} {
		resp := getWithToken(t, ts.URL+"/api/profile", token)
		resp.Body.Close() //nolint:errcheck
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: expected 401, got %d", token, resp.StatusCode)
		}
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	postJSON(t, ts.URL+"/auth/register", registration).Body.Close() //nolint:errcheck
	resp := postJSON(t, ts.URL+"/auth/login", map[string]string{"username": "reader", "password": "Reader1!pw"})
	login := decodeBody(t, resp)
	resp.Body.Close() //nolint:errcheck

	resp = postJSON(t, ts.URL+"/api/profile/change-password",
		map[string]string{"currentPassword": "wrong", "newPassword": "Next1!pass"},
		"Authorization", "Bearer "+login["accessToken"].(string))
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestForwardAuth(t *testing.T) {
	ts := newTestServer(t, testOpts{configure: func(s *adapthttp.Server) { s.WithForwardAuth() }})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/profile", nil)
	req.Header.Set("Remote-User", "proxy@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["username"] != "proxy@example.com" {
		t.Fatalf("unexpected profile %v", body)
	}
}

func TestLoginRateLimit(t *testing.T) {
	ts := newTestServer(t, testOpts{configure: func(s *adapthttp.Server) { s.WithLoginRate(0.001, 1) }})

	first := postJSON(t, ts.URL+"/auth/login", map[string]string{"username": "a", "password": "b"})
	first.Body.Close() //nolint:errcheck
	second := postJSON(t, ts.URL+"/auth/login", map[string]string{"username": "a", "password": "b"})
	second.Body.Close() //nolint:errcheck

	if first.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected first attempt to reach the handler, got %d", first.StatusCode)
	}
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, testOpts{configure: func(s *adapthttp.Server) { s.WithCORS([]string{"http://shop.local"}) }})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/books", nil)
	req.Header.Set("Origin", "http://shop.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://shop.local" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/books", nil)
	req.Header.Set("Origin", "http://evil.local")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS headers for unknown origin")
	}
}

func TestAuthConfigAndSSODisabled(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	resp, err := http.Get(ts.URL + "/auth/config")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)
	resp.Body.Close() //nolint:errcheck
	if body["sso_enabled"] != false {
		t.Fatalf("expected sso disabled, got %v", body)
	}

	resp, err = http.Get(ts.URL + "/auth/sso/login")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, testOpts{configure: func(s *adapthttp.Server) { s.WithMetrics(metrics.New()) }})

	resp, err := http.Get(ts.URL + "/api/books")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close() //nolint:errcheck

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), `bookstore_http_requests_total{method="GET",path="/api/books",status="200"} 1`) {
		t.Fatalf("expected request counter in metrics output, got:\n%s", buf.String())
	}
}

func TestSPAFallback(t *testing.T) {
	ts := newTestServer(t, testOpts{})

	resp, err := http.Get(ts.URL + "/books/42")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store, got %q", resp.Header.Get("Cache-Control"))
	}
}
