// Package storefront holds the client-side session: cart, authenticated
// user and UI flags, plus the controller that ties them to the bookstore
// API and persisted slots.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"bookstore/internal/client"
	"bookstore/internal/domain"
)

var (
	// ErrSuperseded is returned by a book query whose result was dropped
	// because a newer query started.
	ErrSuperseded = errors.New("superseded by a newer query")
	// ErrIncompleteLogin is returned when a login reply lacks the customer
	// or the access token.
	ErrIncompleteLogin = errors.New("login response is missing the user or token")
)

// API is the part of *client.Client the storefront uses.
type API interface {
	ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	SearchBooks(ctx context.Context, q string) ([]domain.Book, error)
	Bestsellers(ctx context.Context, limit int) ([]domain.Book, error)
	BooksByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error)
	BooksByGenre(ctx context.Context, genreID int64) ([]domain.Book, error)
	ListAuthors(ctx context.Context) ([]domain.Author, error)
	ListGenres(ctx context.Context) ([]domain.Genre, error)

	Login(ctx context.Context, creds client.Credentials) (*client.LoginResult, error)
	Register(ctx context.Context, req client.RegisterRequest) (string, *domain.Customer, error)
	Logout(ctx context.Context, refreshToken string) error
	SetTokens(accessToken, refreshToken string)
	OnSessionExpired(fn func())
	OnTokenRefreshed(fn func(accessToken string))
}

// Storefront drives the Store from user intents.
type Storefront struct {
	store  *Store
	api    API
	slots  Slots
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New wires a storefront to api and slots. The session starts loading
// until Restore runs.
func New(api API, slots Slots, logger *zap.Logger) *Storefront {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Storefront{
		store:  NewStore(State{Loading: true}),
		api:    api,
		slots:  slots,
		logger: logger,
	}
	api.OnSessionExpired(s.sessionExpired)
	api.OnTokenRefreshed(s.tokenRefreshed)
	return s
}

// Store exposes the underlying store for subscribers.
func (s *Storefront) Store() *Store { return s.store }

// State returns the current snapshot.
func (s *Storefront) State() State { return s.store.State() }

// Restore reloads the persisted session and cart. A user slot that does not
// decode to a stored customer clears all token slots.
func (s *Storefront) Restore(ctx context.Context) error {
	defer s.store.Dispatch(SetLoading{Loading: false})

	access, okA, err := s.slots.Get(KeyAuthToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	refresh, okR, err := s.slots.Get(KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	rawUser, okU, err := s.slots.Get(KeyUser)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	if okA && okR && okU {
		var user domain.Customer
		err := json.Unmarshal([]byte(rawUser), &user)
		if err != nil || user.ID == 0 || access == "" {
			s.logger.Warn("discarding unreadable session", zap.Error(err))
			if derr := s.slots.Delete(KeyAuthToken, KeyRefreshToken, KeyUser); derr != nil {
				return fmt.Errorf("clear session: %w", derr)
			}
		} else {
			s.api.SetTokens(access, refresh)
			s.store.Dispatch(LoginSucceeded{User: &user, AccessToken: access, RefreshToken: refresh})
		}
	}

	rawCart, ok, err := s.slots.Get(KeyCart)
	if err != nil {
		return fmt.Errorf("restore cart: %w", err)
	}
	if ok {
		var lines []CartLine
		if err := json.Unmarshal([]byte(rawCart), &lines); err != nil {
			s.logger.Warn("discarding unreadable cart", zap.Error(err))
			return s.slots.Delete(KeyCart)
		}
		s.store.Dispatch(RestoreCart{Lines: lines})
	}
	return nil
}

// Login authenticates and persists the session. Any current session ends
// first. On failure the session stays anonymous and the cart is untouched.
func (s *Storefront) Login(ctx context.Context, username, password string) error {
	if prev := s.store.State().Session; prev.Authenticated {
		s.dropSession(ctx, prev.RefreshToken)
	}
	s.store.Dispatch(LoginStarted{})

	res, err := s.api.Login(ctx, client.Credentials{Username: username, Password: password})
	if err != nil {
		s.store.Dispatch(LoginFailed{Err: client.Message(err)})
		return err
	}
	if res.Customer == nil || res.Customer.ID == 0 || res.AccessToken == "" {
		s.api.SetTokens("", "")
		s.store.Dispatch(LoginFailed{Err: ErrIncompleteLogin.Error()})
		return ErrIncompleteLogin
	}

	if err := s.persistSession(res.AccessToken, res.RefreshToken, res.Customer); err != nil {
		s.logger.Warn("persist session", zap.Error(err))
	}
	s.store.Dispatch(LoginSucceeded{User: res.Customer, AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
	s.logger.Info("logged in", zap.String("username", username))
	return nil
}

// dropSession revokes refreshToken on a best-effort basis and forgets the
// tokens on the client and in the slots. The cart is kept.
func (s *Storefront) dropSession(ctx context.Context, refreshToken string) {
	if refreshToken != "" {
		if err := s.api.Logout(ctx, refreshToken); err != nil {
			s.logger.Warn("server logout failed", zap.Error(err))
		}
	}
	s.api.SetTokens("", "")
	if err := s.slots.Delete(KeyAuthToken, KeyRefreshToken, KeyUser); err != nil {
		s.logger.Warn("clear session", zap.Error(err))
	}
}

// Register creates an account and returns the server's message.
func (s *Storefront) Register(ctx context.Context, req client.RegisterRequest) (string, error) {
	s.store.Dispatch(RegisterStarted{})

	msg, _, err := s.api.Register(ctx, req)
	if err != nil {
		s.store.Dispatch(RegisterFailed{Err: client.Message(err)})
		return "", err
	}
	s.store.Dispatch(RegisterSucceeded{Message: msg})
	return msg, nil
}

// Logout revokes the refresh token on a best-effort basis, clears the
// persisted session and empties the cart.
func (s *Storefront) Logout(ctx context.Context) error {
	s.dropSession(ctx, s.store.State().Session.RefreshToken)
	return s.endSession()
}

func (s *Storefront) endSession() error {
	err := s.slots.Delete(KeyAuthToken, KeyRefreshToken, KeyUser, KeyCart)
	s.store.Dispatch(Logout{})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Storefront) sessionExpired() {
	s.logger.Info("session expired")
	if err := s.endSession(); err != nil {
		s.logger.Warn("clear expired session", zap.Error(err))
	}
}

func (s *Storefront) tokenRefreshed(access string) {
	s.store.Dispatch(TokenRefreshed{AccessToken: access})
	if err := s.slots.Set(KeyAuthToken, access); err != nil {
		s.logger.Warn("persist refreshed token", zap.Error(err))
	}
}

func (s *Storefront) persistSession(access, refresh string, user *domain.Customer) error {
	b, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.slots.Set(KeyAuthToken, access); err != nil {
		return err
	}
	if err := s.slots.Set(KeyRefreshToken, refresh); err != nil {
		return err
	}
	return s.slots.Set(KeyUser, string(b))
}

// --- catalog ---

// FetchBooks loads a filtered book listing.
func (s *Storefront) FetchBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, error) {
	return s.bookQuery(ctx, func(ctx context.Context) ([]domain.Book, error) {
		return s.api.ListBooks(ctx, f)
	})
}

func (s *Storefront) SearchBooks(ctx context.Context, q string) ([]domain.Book, error) {
	return s.bookQuery(ctx, func(ctx context.Context) ([]domain.Book, error) {
		return s.api.SearchBooks(ctx, q)
	})
}

func (s *Storefront) Bestsellers(ctx context.Context, limit int) ([]domain.Book, error) {
	return s.bookQuery(ctx, func(ctx context.Context) ([]domain.Book, error) {
		return s.api.Bestsellers(ctx, limit)
	})
}

func (s *Storefront) BooksByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error) {
	return s.bookQuery(ctx, func(ctx context.Context) ([]domain.Book, error) {
		return s.api.BooksByAuthor(ctx, authorID)
	})
}

func (s *Storefront) BooksByGenre(ctx context.Context, genreID int64) ([]domain.Book, error) {
	return s.bookQuery(ctx, func(ctx context.Context) ([]domain.Book, error) {
		return s.api.BooksByGenre(ctx, genreID)
	})
}

// bookQuery cancels the previous in-flight query and applies fn's result
// only while it is still the latest.
func (s *Storefront) bookQuery(ctx context.Context, fn func(context.Context) ([]domain.Book, error)) ([]domain.Book, error) {
	qctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	gen := s.store.Dispatch(QueryStarted{}).QueryGen
	s.mu.Unlock()

	books, err := fn(qctx)

	var st State
	if err != nil {
		st = s.store.Dispatch(QueryFailed{Gen: gen, Err: client.Message(err)})
	} else {
		st = s.store.Dispatch(BooksLoaded{Gen: gen, Books: books})
	}
	if st.QueryGen != gen {
		return nil, ErrSuperseded
	}
	return books, err
}

// GetBook loads the detail view for one book.
func (s *Storefront) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	s.store.Dispatch(OperationStarted{})
	b, err := s.api.GetBook(ctx, id)
	if err != nil {
		s.store.Dispatch(SetError{Err: client.Message(err)})
		return nil, err
	}
	s.store.Dispatch(BookLoaded{Book: b})
	return b, nil
}

// FetchAuthors returns the cached authors, loading them on first use.
func (s *Storefront) FetchAuthors(ctx context.Context) ([]domain.Author, error) {
	if cached := s.store.State().Authors; len(cached) > 0 {
		return cached, nil
	}
	s.store.Dispatch(OperationStarted{})
	authors, err := s.api.ListAuthors(ctx)
	if err != nil {
		s.store.Dispatch(SetError{Err: client.Message(err)})
		return nil, err
	}
	s.store.Dispatch(AuthorsLoaded{Authors: authors})
	return authors, nil
}

// FetchGenres returns the cached genres, loading them on first use.
func (s *Storefront) FetchGenres(ctx context.Context) ([]domain.Genre, error) {
	if cached := s.store.State().Genres; len(cached) > 0 {
		return cached, nil
	}
	s.store.Dispatch(OperationStarted{})
	genres, err := s.api.ListGenres(ctx)
	if err != nil {
		s.store.Dispatch(SetError{Err: client.Message(err)})
		return nil, err
	}
	s.store.Dispatch(GenresLoaded{Genres: genres})
	return genres, nil
}

// ClearError dismisses the visible error.
func (s *Storefront) ClearError() {
	s.store.Dispatch(ClearError{})
}

// --- cart ---

func (s *Storefront) AddToCart(item Item, qty int) error {
	return s.updateCart(AddItem{Item: item, Qty: qty})
}

func (s *Storefront) RemoveFromCart(itemID int64) error {
	return s.updateCart(RemoveItem{ItemID: itemID})
}

func (s *Storefront) SetQuantity(itemID int64, qty int) error {
	return s.updateCart(SetQuantity{ItemID: itemID, Qty: qty})
}

func (s *Storefront) ClearCart() error {
	return s.updateCart(ClearCart{})
}

func (s *Storefront) updateCart(a Action) error {
	st := s.store.Dispatch(a)
	if len(st.Cart) == 0 {
		return s.slots.Delete(KeyCart)
	}
	b, err := json.Marshal(st.Cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.slots.Set(KeyCart, string(b)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
