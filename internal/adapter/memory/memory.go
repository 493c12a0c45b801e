// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"bookstore/internal/domain"
)

// ErrDuplicate is returned when a unique column would be violated.
var ErrDuplicate = errors.New("memory: duplicate key")

// DB implements an in-memory database storage.
type DB struct {
	mu         sync.Mutex
	books      []domain.Book
	authors    []domain.Author
	genres     []domain.Genre
	publishers []domain.Publisher
	customers  []*domain.Customer
	sessions   map[string]domain.RefreshSession

	bookIDCounter      int64
	authorIDCounter    int64
	genreIDCounter     int64
	publisherIDCounter int64
	customerIDCounter  int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]domain.RefreshSession),
	}
}

// Ensure interfaces are met.
var _ domain.CatalogRepository = (*DB)(nil)
var _ domain.CustomerRepository = (*DB)(nil)
var _ domain.RefreshSessionRepository = (*SessionRepo)(nil)

// --- Catalog writes ---

// AddAuthor stores an author and returns its ID.
func (db *DB) AddAuthor(a domain.Author) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.authorIDCounter++
	a.ID = db.authorIDCounter
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	db.authors = append(db.authors, a)
	return a.ID
}

// AddGenre stores a genre and returns its ID.
func (db *DB) AddGenre(g domain.Genre) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.genreIDCounter++
	g.ID = db.genreIDCounter
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	db.genres = append(db.genres, g)
	return g.ID
}

// AddPublisher stores a publisher and returns its ID.
func (db *DB) AddPublisher(p domain.Publisher) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.publisherIDCounter++
	p.ID = db.publisherIDCounter
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	db.publishers = append(db.publishers, p)
	return p.ID
}

// AddBook stores a book. The author, genre and publisher are resolved by
// the IDs set on b's refs; unknown IDs leave the names empty.
func (db *DB) AddBook(b domain.Book) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.authors {
		if a.ID == b.Author.ID {
			b.Author = domain.AuthorRef{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName}
		}
	}
	for _, g := range db.genres {
		if g.ID == b.Genre.ID {
			b.Genre = domain.GenreRef{ID: g.ID, Name: g.Name}
		}
	}
	for _, p := range db.publishers {
		if p.ID == b.Publisher.ID {
			b.Publisher = domain.PublisherRef{ID: p.ID, Name: p.Name}
		}
	}

	db.bookIDCounter++
	b.ID = db.bookIDCounter
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	db.books = append(db.books, b)
	return b.ID
}

// --- CatalogRepository ---

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// selectBooks copies the books matching keep, ordered by title then ID.
func (db *DB) selectBooks(keep func(domain.Book) bool) []domain.Book {
	result := []domain.Book{}
	for _, b := range db.books {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Title != result[j].Title {
			return result[i].Title < result[j].Title
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ListBooks returns a filtered, paginated page of books ordered by title.
func (db *DB) ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := db.selectBooks(func(b domain.Book) bool {
		if f.Title != "" && !containsFold(b.Title, f.Title) {
			return false
		}
		if f.Author != "" && !containsFold(b.Author.FirstName, f.Author) &&
			!containsFold(b.Author.LastName, f.Author) && !containsFold(b.Author.FullName(), f.Author) {
			return false
		}
		if f.Genre != "" && !containsFold(b.Genre.Name, f.Genre) {
			return false
		}
		if f.Format != "" && b.Format != f.Format {
			return false
		}
		return true
	})

	if f.Size <= 0 {
		return result, nil
	}
	start := f.Offset()
	if start >= len(result) {
		return []domain.Book{}, nil
	}
	end := start + f.Size
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

// GetBook retrieves a single book by ID.
func (db *DB) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, b := range db.books {
		if b.ID == id {
			ret := b
			return &ret, nil
		}
	}
	return nil, nil
}

// SearchBooks matches q against title, ISBN and author names.
func (db *DB) SearchBooks(ctx context.Context, q string) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.selectBooks(func(b domain.Book) bool {
		return containsFold(b.Title, q) || containsFold(b.ISBN, q) ||
			containsFold(b.Author.FirstName, q) || containsFold(b.Author.LastName, q)
	}), nil
}

// NewestBooks returns the most recently added books.
func (db *DB) NewestBooks(ctx context.Context, limit int) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Book, len(db.books))
	copy(result, db.books)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// BooksByAuthor returns every book written by the author.
func (db *DB) BooksByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.selectBooks(func(b domain.Book) bool { return b.Author.ID == authorID }), nil
}

// BooksByGenre returns every book in the genre.
func (db *DB) BooksByGenre(ctx context.Context, genreID int64) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.selectBooks(func(b domain.Book) bool { return b.Genre.ID == genreID }), nil
}

// BooksByFormat returns every book in the format.
func (db *DB) BooksByFormat(ctx context.Context, format string) ([]domain.Book, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.selectBooks(func(b domain.Book) bool { return b.Format == format }), nil
}

// ListAuthors returns all authors ordered by last then first name.
func (db *DB) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Author, len(db.authors))
	copy(result, db.authors)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

// GetAuthor retrieves an author by ID.
func (db *DB) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.authors {
		if a.ID == id {
			ret := a
			return &ret, nil
		}
	}
	return nil, nil
}

// ListGenres returns all genres ordered by name.
func (db *DB) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Genre, len(db.genres))
	copy(result, db.genres)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// GetGenre retrieves a genre by ID.
func (db *DB) GetGenre(ctx context.Context, id int64) (*domain.Genre, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, g := range db.genres {
		if g.ID == id {
			ret := g
			return &ret, nil
		}
	}
	return nil, nil
}

// --- CustomerRepository ---

func copyCustomer(c *domain.Customer) *domain.Customer {
	ret := *c
	ret.Roles = append([]string(nil), c.Roles...)
	if c.LastLogin != nil {
		t := *c.LastLogin
		ret.LastLogin = &t
	}
	return &ret
}

func (db *DB) findCustomer(match func(*domain.Customer) bool) *domain.Customer {
	for _, c := range db.customers {
		if match(c) {
			return c
		}
	}
	return nil
}

// GetByUsername retrieves a customer by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c := db.findCustomer(func(c *domain.Customer) bool { return c.Username == username }); c != nil {
		return copyCustomer(c), nil
	}
	return nil, nil
}

// GetByEmail retrieves a customer by email address.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if email == "" {
		return nil, nil
	}
	if c := db.findCustomer(func(c *domain.Customer) bool { return c.Email == email }); c != nil {
		return copyCustomer(c), nil
	}
	return nil, nil
}

// GetByID retrieves a customer by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c := db.findCustomer(func(c *domain.Customer) bool { return c.ID == id }); c != nil {
		return copyCustomer(c), nil
	}
	return nil, nil
}

// Create stores a new customer. Username and non-empty email are unique.
func (db *DB) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.customers {
		if existing.Username == c.Username || (c.Email != "" && existing.Email == c.Email) {
			return nil, ErrDuplicate
		}
	}

	db.customerIDCounter++
	stored := copyCustomer(c)
	stored.ID = db.customerIDCounter
	if len(stored.Roles) == 0 {
		stored.Roles = []string{domain.RoleUser}
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	db.customers = append(db.customers, stored)
	return copyCustomer(stored), nil
}

// Update persists the editable profile fields of a customer.
func (db *DB) Update(ctx context.Context, c *domain.Customer) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c.Email != "" {
		if other := db.findCustomer(func(o *domain.Customer) bool { return o.Email == c.Email && o.ID != c.ID }); other != nil {
			return ErrDuplicate
		}
	}
	stored := db.findCustomer(func(o *domain.Customer) bool { return o.ID == c.ID })
	if stored == nil {
		return nil
	}
	stored.FirstName = c.FirstName
	stored.LastName = c.LastName
	stored.Email = c.Email
	stored.Phone = c.Phone
	stored.Address = c.Address
	return nil
}

// UpdatePassword replaces the stored password hash.
func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c := db.findCustomer(func(c *domain.Customer) bool { return c.ID == id }); c != nil {
		c.PasswordHash = passwordHash
	}
	return nil
}

// TouchLastLogin records the time of a successful login.
func (db *DB) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c := db.findCustomer(func(c *domain.Customer) bool { return c.ID == id }); c != nil {
		t := at.UTC()
		c.LastLogin = &t
	}
	return nil
}

// --- RefreshSessionRepository ---

// SessionRepo implements refresh session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new refresh session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create records an issued refresh token.
func (r *SessionRepo) Create(ctx context.Context, s domain.RefreshSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.db.sessions[s.TokenID] = s
	return nil
}

// GetByTokenID retrieves a refresh session by token id.
func (r *SessionRepo) GetByTokenID(ctx context.Context, tokenID string) (*domain.RefreshSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[tokenID]; ok {
		return &s, nil
	}
	return nil, nil
}

// Delete revokes a refresh session.
func (r *SessionRepo) Delete(ctx context.Context, tokenID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, tokenID)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
