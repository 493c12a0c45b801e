package app

import (
	"context"
	"errors"
	"strings"

	"bookstore/internal/domain"
)

// Paging and limit bounds for catalog listings.
const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultBestsellers = 5
	MaxBestsellers     = 50
)

var (
	// ErrBookNotFound indicates that no book has the requested id.
	ErrBookNotFound = errors.New("book not found")
	// ErrAuthorNotFound indicates that no author has the requested id.
	ErrAuthorNotFound = errors.New("author not found")
	// ErrGenreNotFound indicates that no genre has the requested id.
	ErrGenreNotFound = errors.New("genre not found")
	// ErrInvalidFormat indicates an unknown book format.
	ErrInvalidFormat = errors.New("format must be one of PHYSICAL, E_BOOK, AUDIOBOOK")
)

// CatalogService encapsulates the read-only catalog use cases.
type CatalogService struct {
	repo domain.CatalogRepository
}

// NewCatalogService creates a CatalogService backed by the given repository.
func NewCatalogService(repo domain.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListBooks returns one page of books matching f, ordered by title.
func (s *CatalogService) ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.Genre = strings.TrimSpace(f.Genre)
	f.Format = strings.ToUpper(strings.TrimSpace(f.Format))
	if f.Format != "" && !domain.ValidFormat(f.Format) {
		return nil, ErrInvalidFormat
	}
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	return nonNil(s.repo.ListBooks(ctx, f))
}

// GetBook returns a single book.
func (s *CatalogService) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookNotFound
	}
	return b, nil
}

// SearchBooks matches q against title, ISBN and author names. A blank query
// yields an empty result without touching the repository.
func (s *CatalogService) SearchBooks(ctx context.Context, q string) ([]domain.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.Book{}, nil
	}
	return nonNil(s.repo.SearchBooks(ctx, q))
}

// Bestsellers returns the newest limit books.
func (s *CatalogService) Bestsellers(ctx context.Context, limit int) ([]domain.Book, error) {
	if limit <= 0 {
		limit = DefaultBestsellers
	}
	if limit > MaxBestsellers {
		limit = MaxBestsellers
	}
	return nonNil(s.repo.NewestBooks(ctx, limit))
}

// BooksByAuthor lists an author's books ordered by title.
func (s *CatalogService) BooksByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error) {
	return nonNil(s.repo.BooksByAuthor(ctx, authorID))
}

// BooksByGenre lists a genre's books ordered by title.
func (s *CatalogService) BooksByGenre(ctx context.Context, genreID int64) ([]domain.Book, error) {
	return nonNil(s.repo.BooksByGenre(ctx, genreID))
}

// BooksByFormat lists books of one format ordered by title.
func (s *CatalogService) BooksByFormat(ctx context.Context, format string) ([]domain.Book, error) {
	format = strings.ToUpper(strings.TrimSpace(format))
	if !domain.ValidFormat(format) {
		return nil, ErrInvalidFormat
	}
	return nonNil(s.repo.BooksByFormat(ctx, format))
}

// ListAuthors returns all authors ordered by last then first name.
func (s *CatalogService) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	return nonNil(s.repo.ListAuthors(ctx))
}

// GetAuthor returns a single author.
func (s *CatalogService) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	a, err := s.repo.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAuthorNotFound
	}
	return a, nil
}

// ListGenres returns all genres ordered by name.
func (s *CatalogService) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return nonNil(s.repo.ListGenres(ctx))
}

// GetGenre returns a single genre.
func (s *CatalogService) GetGenre(ctx context.Context, id int64) (*domain.Genre, error) {
	g, err := s.repo.GetGenre(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGenreNotFound
	}
	return g, nil
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](items []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
