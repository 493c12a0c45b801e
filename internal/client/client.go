// Package client is a typed HTTP client for the bookstore API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"bookstore/internal/domain"
)

const maxBodyBytes = 4 << 20

// Config holds client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the bookstore API. It carries the current access and
// refresh tokens and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu               sync.Mutex
	accessToken      string
	refreshToken     string
	onSessionExpired func()
	onTokenRefreshed func(accessToken string)
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("BaseURL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// SetTokens replaces the tokens attached to outgoing requests.
func (c *Client) SetTokens(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken, c.refreshToken = accessToken, refreshToken
}

// Tokens returns the current access and refresh tokens.
func (c *Client) Tokens() (accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// OnSessionExpired registers fn to run after a refresh fails or a refreshed
// request is still rejected. Tokens are already cleared when fn runs.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSessionExpired = fn
}

// OnTokenRefreshed registers fn to run with each newly refreshed access token.
func (c *Client) OnTokenRefreshed(fn func(accessToken string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTokenRefreshed = fn
}

// --- Catalog ---

// ListBooks returns a filtered page of books. Zero-valued fields are omitted.
func (c *Client) ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, error) {
	q := url.Values{}
	setNonEmpty(q, "title", f.Title)
	setNonEmpty(q, "author", f.Author)
	setNonEmpty(q, "genre", f.Genre)
	setNonEmpty(q, "format", f.Format)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Size > 0 {
		q.Set("size", strconv.Itoa(f.Size))
	}
	var books []domain.Book
	err := c.do(ctx, "list books", http.MethodGet, "/api/books", q, nil, &books, true)
	return books, err
}

// GetBook fetches a single book.
func (c *Client) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	var b domain.Book
	if err := c.do(ctx, "get book", http.MethodGet, "/api/books/"+strconv.FormatInt(id, 10), nil, nil, &b, true); err != nil {
		return nil, err
	}
	return &b, nil
}

// SearchBooks runs a free-text search over title, ISBN and author.
func (c *Client) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	var books []domain.Book
	err := c.do(ctx, "search books", http.MethodGet, "/api/books/search", url.Values{"q": {query}}, nil, &books, true)
	return books, err
}

// Bestsellers returns up to limit featured books; limit <= 0 uses the server default.
func (c *Client) Bestsellers(ctx context.Context, limit int) ([]domain.Book, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var books []domain.Book
	err := c.do(ctx, "bestsellers", http.MethodGet, "/api/books/bestsellers", q, nil, &books, true)
	return books, err
}

// BooksByAuthor lists the author's books.
func (c *Client) BooksByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error) {
	var books []domain.Book
	err := c.do(ctx, "books by author", http.MethodGet, "/api/books/author/"+strconv.FormatInt(authorID, 10), nil, nil, &books, true)
	return books, err
}

// BooksByGenre lists the genre's books.
func (c *Client) BooksByGenre(ctx context.Context, genreID int64) ([]domain.Book, error) {
	var books []domain.Book
	err := c.do(ctx, "books by genre", http.MethodGet, "/api/books/genre/"+strconv.FormatInt(genreID, 10), nil, nil, &books, true)
	return books, err
}

// BooksByFormat lists books in a format such as "E_BOOK".
func (c *Client) BooksByFormat(ctx context.Context, format string) ([]domain.Book, error) {
	var books []domain.Book
	err := c.do(ctx, "books by format", http.MethodGet, "/api/books/format/"+url.PathEscape(format), nil, nil, &books, true)
	return books, err
}

// ListAuthors returns every author.
func (c *Client) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	var authors []domain.Author
	err := c.do(ctx, "list authors", http.MethodGet, "/api/authors", nil, nil, &authors, true)
	return authors, err
}

// GetAuthor fetches a single author.
func (c *Client) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	var a domain.Author
	if err := c.do(ctx, "get author", http.MethodGet, "/api/authors/"+strconv.FormatInt(id, 10), nil, nil, &a, true); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListGenres returns every genre.
func (c *Client) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	var genres []domain.Genre
	err := c.do(ctx, "list genres", http.MethodGet, "/api/genres", nil, nil, &genres, true)
	return genres, err
}

// GetGenre fetches a single genre.
func (c *Client) GetGenre(ctx context.Context, id int64) (*domain.Genre, error) {
	var g domain.Genre
	if err := c.do(ctx, "get genre", http.MethodGet, "/api/genres/"+strconv.FormatInt(id, 10), nil, nil, &g, true); err != nil {
		return nil, err
	}
	return &g, nil
}

// --- Auth ---

// Credentials is a username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the token pair and profile returned by a login.
type LoginResult struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	Customer     *domain.Customer `json:"customer"`
}

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Login authenticates and, on success, attaches the returned tokens to
// subsequent requests.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", nil, creds, &res, false); err != nil {
		return nil, err
	}
	c.SetTokens(res.AccessToken, res.RefreshToken)
	return &res, nil
}

// Refresh exchanges a refresh token for a new access token. It never
// triggers the refresh-and-retry path itself.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var res struct {
		AccessToken string `json:"accessToken"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, "refresh", http.MethodPost, "/auth/refresh", nil, body, &res, false); err != nil {
		return "", err
	}
	return res.AccessToken, nil
}

// Register creates an account and returns the server's message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, *domain.Customer, error) {
	var res struct {
		Message string           `json:"message"`
		Data    *domain.Customer `json:"data"`
	}
	if err := c.do(ctx, "register", http.MethodPost, "/auth/register", nil, req, &res, false); err != nil {
		return "", nil, err
	}
	return res.Message, res.Data, nil
}

// Logout revokes refreshToken on the server and drops the client's tokens.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	err := c.do(ctx, "logout", http.MethodPost, "/auth/logout", nil, body, nil, false)
	c.SetTokens("", "")
	return err
}

// Profile returns the authenticated customer's profile.
func (c *Client) Profile(ctx context.Context) (*domain.Customer, error) {
	var cust domain.Customer
	if err := c.do(ctx, "profile", http.MethodGet, "/api/profile", nil, nil, &cust, true); err != nil {
		return nil, err
	}
	return &cust, nil
}

// --- transport ---

func setNonEmpty(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}

// do sends one request and decodes a 2xx body into out. When retryAuth is
// set and a bearer request is rejected with 401, it refreshes once and
// retries once.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any, retryAuth bool) error {
	access, refresh := c.Tokens()

	status, raw, err := c.send(ctx, op, method, path, query, body, access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && retryAuth && access != "" && refresh != "" {
		newAccess, rerr := c.Refresh(ctx, refresh)
		if rerr != nil {
			c.expire()
			return statusError(op, status, raw)
		}
		c.mu.Lock()
		c.accessToken = newAccess
		hook := c.onTokenRefreshed
		c.mu.Unlock()
		if hook != nil {
			hook(newAccess)
		}

		status, raw, err = c.send(ctx, op, method, path, query, body, newAccess)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			c.expire()
		}
	}

	if status < 200 || status > 299 {
		return statusError(op, status, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Kind: KindServer, Status: status, Message: "malformed response", Op: op,
			kindErr: &ServerError{Status: status, Message: "malformed response"}, cause: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body any, token string) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, networkError(op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, networkError(op, err)
	}
	return resp.StatusCode, raw, nil
}

// expire clears the tokens and runs the session-expired hook.
func (c *Client) expire() {
	c.mu.Lock()
	c.accessToken, c.refreshToken = "", ""
	hook := c.onSessionExpired
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
}
