package domain

import (
	"context"
	"strings"
	"time"
)

// Book formats accepted by the catalog.
const (
	FormatPhysical  = "PHYSICAL"
	FormatEBook     = "E_BOOK"
	FormatAudiobook = "AUDIOBOOK"
)

// ValidFormat reports whether f (case-insensitive) names a known book format.
func ValidFormat(f string) bool {
	switch strings.ToUpper(f) {
	case FormatPhysical, FormatEBook, FormatAudiobook:
		return true
	}
	return false
}

// AuthorRef is the author summary embedded in a Book.
type AuthorRef struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins first and last name.
func (a AuthorRef) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// GenreRef is the genre summary embedded in a Book.
type GenreRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PublisherRef is the publisher summary embedded in a Book.
type PublisherRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Book is a catalog entry together with its author, genre and publisher.
type Book struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	ISBN            string       `json:"isbn"`
	PublicationDate *time.Time   `json:"publicationDate,omitempty"`
	Price           float64      `json:"price"`
	Format          string       `json:"format"`
	Description     string       `json:"description,omitempty"`
	CoverImageURL   string       `json:"coverImageUrl,omitempty"`
	Author          AuthorRef    `json:"author"`
	Genre           GenreRef     `json:"genre"`
	Publisher       PublisherRef `json:"publisher"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// Author is a full author record.
type Author struct {
	ID        int64      `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Biography string     `json:"biography,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Genre is a full genre record.
type Genre struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Publisher is a full publisher record.
type Publisher struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookFilter narrows a book listing. Empty string fields are ignored.
// Title, Author and Genre match case-insensitive substrings; Format matches
// exactly after upper-casing.
type BookFilter struct {
	Title  string
	Author string
	Genre  string
	Format string
	Page   int
	Size   int
}

// Offset returns the row offset for the filter's page.
func (f BookFilter) Offset() int {
	return f.Page * f.Size
}

// CatalogRepository is the port for catalog reads.
type CatalogRepository interface {
	ListBooks(ctx context.Context, f BookFilter) ([]Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	SearchBooks(ctx context.Context, q string) ([]Book, error)
	NewestBooks(ctx context.Context, limit int) ([]Book, error)
	BooksByAuthor(ctx context.Context, authorID int64) ([]Book, error)
	BooksByGenre(ctx context.Context, genreID int64) ([]Book, error)
	BooksByFormat(ctx context.Context, format string) ([]Book, error)
	ListAuthors(ctx context.Context) ([]Author, error)
	GetAuthor(ctx context.Context, id int64) (*Author, error)
	ListGenres(ctx context.Context) ([]Genre, error)
	GetGenre(ctx context.Context, id int64) (*Genre, error)
}
