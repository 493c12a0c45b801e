package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestListBooks_SendsFilter(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books", r.URL.Path)
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, []domain.Book{{ID: 1, Title: "Dune", Price: 9.99}})
	})

	books, err := c.ListBooks(context.Background(), domain.BookFilter{Title: "dune", Format: "E_BOOK", Page: 2, Size: 10})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "format=E_BOOK&page=2&size=10&title=dune", gotQuery)
}

func TestCatalogPaths(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
		path string
	}{
		{"search", func(c *Client) error { _, err := c.SearchBooks(context.Background(), "red"); return err }, "/api/books/search?q=red"},
		{"bestsellers", func(c *Client) error { _, err := c.Bestsellers(context.Background(), 3); return err }, "/api/books/bestsellers?limit=3"},
		{"by author", func(c *Client) error { _, err := c.BooksByAuthor(context.Background(), 4); return err }, "/api/books/author/4"},
		{"by genre", func(c *Client) error { _, err := c.BooksByGenre(context.Background(), 2); return err }, "/api/books/genre/2"},
		{"by format", func(c *Client) error { _, err := c.BooksByFormat(context.Background(), "AUDIOBOOK"); return err }, "/api/books/format/AUDIOBOOK"},
		{"authors", func(c *Client) error { _, err := c.ListAuthors(context.Background()); return err }, "/api/authors"},
		{"genres", func(c *Client) error { _, err := c.ListGenres(context.Background()); return err }, "/api/genres"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.RequestURI()
				writeJSON(w, http.StatusOK, []any{})
			})
			require.NoError(t, tc.call(c))
			assert.Equal(t, tc.path, got)
		})
	}
}

func TestErrors_AreTyped(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		check  func(t *testing.T, err error)
		msg    string
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   map[string]string{"error": "book not found"},
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) },
			msg:    "book not found",
		},
		{
			name:   "validation",
			status: http.StatusBadRequest,
			body:   map[string]string{"message": "invalid format"},
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, http.StatusBadRequest, ve.Status)
			},
			msg: "invalid format",
		},
		{
			name:   "server",
			status: http.StatusBadGateway,
			body:   "upstream down",
			check: func(t *testing.T, err error) {
				var se *ServerError
				require.ErrorAs(t, err, &se)
			},
			msg: "Bad Gateway",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := c.GetBook(context.Background(), 99)
			require.Error(t, err)
			tc.check(t, err)
			assert.Equal(t, tc.msg, Message(err))
		})
	}
}

func TestErrors_Network(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.ListAuthors(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindNetwork, apiErr.Kind)
}

func TestLogin_SetsTokens(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "reader", creds.Username)
		writeJSON(w, http.StatusOK, LoginResult{
			AccessToken:  "a1",
			RefreshToken: "r1",
			Customer:     &domain.Customer{ID: 7, Username: "reader"},
		})
	})

	res, err := c.Login(context.Background(), Credentials{Username: "reader", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Customer.ID)

	access, refresh := c.Tokens()
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)
}

func TestLogin_UnauthorizedDoesNotRefresh(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	})
	c.SetTokens("stale", "r1")

	_, err := c.Login(context.Background(), Credentials{Username: "x", Password: "y"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "invalid credentials", Message(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRefreshAndRetry_Once(t *testing.T) {
	var refreshes, profiles int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshes, 1)
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "fresh"})
		case "/api/profile":
			atomic.AddInt32(&profiles, 1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
				return
			}
			writeJSON(w, http.StatusOK, domain.Customer{ID: 3, Username: "reader"})
		}
	})
	c.SetTokens("old", "r1")

	var refreshed string
	c.OnTokenRefreshed(func(tok string) { refreshed = tok })
	c.OnSessionExpired(func() { t.Error("session should not expire") })

	cust, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reader", cust.Username)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&profiles))
	assert.Equal(t, "fresh", refreshed)

	access, refresh := c.Tokens()
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "r1", refresh)
}

func TestRefreshAndRetry_SecondFailureExpires(t *testing.T) {
	var refreshes, profiles int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshes, 1)
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "fresh"})
		default:
			atomic.AddInt32(&profiles, 1)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "account disabled"})
		}
	})
	c.SetTokens("old", "r1")

	expired := 0
	c.OnSessionExpired(func() { expired++ })

	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&profiles))
	assert.Equal(t, 1, expired)

	access, refresh := c.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestRefreshAndRetry_FailedRefreshExpires(t *testing.T) {
	var profiles int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		default:
			atomic.AddInt32(&profiles, 1)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
		}
	})
	c.SetTokens("old", "r1")

	expired := false
	c.OnSessionExpired(func() { expired = true })

	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, expired)
	assert.Equal(t, int32(1), atomic.LoadInt32(&profiles))
	assert.Equal(t, "token expired", Message(err))
}

func TestRegisterAndLogout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/register":
			writeJSON(w, http.StatusCreated, map[string]any{
				"message": "account created",
				"data":    domain.Customer{ID: 5, Username: "new"},
			})
		case "/auth/logout":
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	})

	msg, cust, err := c.Register(context.Background(), RegisterRequest{Username: "new", Password: "Reader1!pw"})
	require.NoError(t, err)
	assert.Equal(t, "account created", msg)
	assert.Equal(t, int64(5), cust.ID)

	c.SetTokens("a", "r")
	require.NoError(t, c.Logout(context.Background(), "r"))
	access, _ := c.Tokens()
	assert.Empty(t, access)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "Not Found", errorMessage(http.StatusNotFound, []byte("<html>")))
	assert.Equal(t, "nope", errorMessage(http.StatusBadRequest, []byte(`{"error":"nope","message":"other"}`)))
	assert.Equal(t, "unexpected status 599", errorMessage(599, nil))
}
