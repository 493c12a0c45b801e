package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bookstore/internal/domain"
)

const bookSelect = `SELECT b.book_id, b.title, b.isbn, b.publication_date, b.price, b.format, b.description, b.cover_image_url, b.created_at,
	a.author_id, a.first_name AS author_first_name, a.last_name AS author_last_name,
	g.genre_id, g.name AS genre_name,
	p.publisher_id, p.name AS publisher_name
FROM books b
JOIN authors a ON b.author_id = a.author_id
JOIN genres g ON b.genre_id = g.genre_id
LEFT JOIN publishers p ON b.publisher_id = p.publisher_id`

type bookRow struct {
	ID              int64          `db:"book_id"`
	Title           string         `db:"title"`
	ISBN            sql.NullString `db:"isbn"`
	PublicationDate sql.NullTime   `db:"publication_date"`
	Price           float64        `db:"price"`
	Format          string         `db:"format"`
	Description     sql.NullString `db:"description"`
	CoverImageURL   sql.NullString `db:"cover_image_url"`
	CreatedAt       time.Time      `db:"created_at"`
	AuthorID        int64          `db:"author_id"`
	AuthorFirstName string         `db:"author_first_name"`
	AuthorLastName  string         `db:"author_last_name"`
	GenreID         int64          `db:"genre_id"`
	GenreName       string         `db:"genre_name"`
	PublisherID     sql.NullInt64  `db:"publisher_id"`
	PublisherName   sql.NullString `db:"publisher_name"`
}

func (r bookRow) toDomain() domain.Book {
	b := domain.Book{
		ID:            r.ID,
		Title:         r.Title,
		ISBN:          r.ISBN.String,
		Price:         r.Price,
		Format:        r.Format,
		Description:   r.Description.String,
		CoverImageURL: r.CoverImageURL.String,
		CreatedAt:     r.CreatedAt,
		Author:        domain.AuthorRef{ID: r.AuthorID, FirstName: r.AuthorFirstName, LastName: r.AuthorLastName},
		Genre:         domain.GenreRef{ID: r.GenreID, Name: r.GenreName},
		Publisher:     domain.PublisherRef{ID: r.PublisherID.Int64, Name: r.PublisherName.String},
	}
	if r.PublicationDate.Valid {
		t := r.PublicationDate.Time
		b.PublicationDate = &t
	}
	return b
}

type authorRow struct {
	ID        int64          `db:"author_id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Biography sql.NullString `db:"biography"`
	BirthDate sql.NullTime   `db:"birth_date"`
	Email     sql.NullString `db:"email"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r authorRow) toDomain() domain.Author {
	a := domain.Author{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Biography: r.Biography.String,
		Email:     r.Email.String,
		CreatedAt: r.CreatedAt,
	}
	if r.BirthDate.Valid {
		t := r.BirthDate.Time
		a.BirthDate = &t
	}
	return a
}

type genreRow struct {
	ID          int64          `db:"genre_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
}

// likePattern wraps s for a substring ILIKE match, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func (d *DB) selectBooks(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	var rows []bookRow
	if err := d.sql.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, r.toDomain())
	}
	return books, nil
}

// ListBooks returns a filtered, paginated page of books ordered by title.
func (d *DB) ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Title != "" {
		where = append(where, "b.title ILIKE "+arg(likePattern(f.Title)))
	}
	if f.Author != "" {
		p := arg(likePattern(f.Author))
		where = append(where, "(a.first_name ILIKE "+p+" OR a.last_name ILIKE "+p+" OR (a.first_name || ' ' || a.last_name) ILIKE "+p+")")
	}
	if f.Genre != "" {
		where = append(where, "g.name ILIKE "+arg(likePattern(f.Genre)))
	}
	if f.Format != "" {
		where = append(where, "b.format = "+arg(f.Format))
	}

	q := bookSelect
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY b.title, b.book_id"
	if f.Size > 0 {
		q += " LIMIT " + arg(f.Size) + " OFFSET " + arg(f.Offset())
	}
	return d.selectBooks(ctx, q, args...)
}

// GetBook retrieves a single book by ID.
func (d *DB) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	var r bookRow
	err := d.sql.GetContext(ctx, &r, bookSelect+"\nWHERE b.book_id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b := r.toDomain()
	return &b, nil
}

// SearchBooks matches q against title, ISBN and author names.
func (d *DB) SearchBooks(ctx context.Context, q string) ([]domain.Book, error) {
	return d.selectBooks(ctx, bookSelect+`
WHERE b.title ILIKE $1 OR b.isbn ILIKE $1 OR a.first_name ILIKE $1 OR a.last_name ILIKE $1
ORDER BY b.title, b.book_id`, likePattern(q))
}

// NewestBooks returns the most recently added books.
func (d *DB) NewestBooks(ctx context.Context, limit int) ([]domain.Book, error) {
	return d.selectBooks(ctx, bookSelect+"\nORDER BY b.book_id DESC LIMIT $1", limit)
}

// BooksByAuthor returns every book written by the author.
func (d *DB) BooksByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error) {
	return d.selectBooks(ctx, bookSelect+"\nWHERE b.author_id = $1\nORDER BY b.title, b.book_id", authorID)
}

// BooksByGenre returns every book in the genre.
func (d *DB) BooksByGenre(ctx context.Context, genreID int64) ([]domain.Book, error) {
	return d.selectBooks(ctx, bookSelect+"\nWHERE b.genre_id = $1\nORDER BY b.title, b.book_id", genreID)
}

// BooksByFormat returns every book in the format.
func (d *DB) BooksByFormat(ctx context.Context, format string) ([]domain.Book, error) {
	return d.selectBooks(ctx, bookSelect+"\nWHERE b.format = $1\nORDER BY b.title, b.book_id", format)
}

// ListAuthors returns all authors ordered by name.
func (d *DB) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	var rows []authorRow
	err := d.sql.SelectContext(ctx, &rows,
		"SELECT author_id, first_name, last_name, biography, birth_date, email, created_at FROM authors ORDER BY last_name, first_name")
	if err != nil {
		return nil, err
	}
	authors := make([]domain.Author, 0, len(rows))
	for _, r := range rows {
		authors = append(authors, r.toDomain())
	}
	return authors, nil
}

// GetAuthor retrieves an author by ID.
func (d *DB) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	var r authorRow
	err := d.sql.GetContext(ctx, &r,
		"SELECT author_id, first_name, last_name, biography, birth_date, email, created_at FROM authors WHERE author_id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := r.toDomain()
	return &a, nil
}

// ListGenres returns all genres ordered by name.
func (d *DB) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	var rows []genreRow
	if err := d.sql.SelectContext(ctx, &rows, "SELECT genre_id, name, description, created_at FROM genres ORDER BY name"); err != nil {
		return nil, err
	}
	genres := make([]domain.Genre, 0, len(rows))
	for _, r := range rows {
		genres = append(genres, domain.Genre{ID: r.ID, Name: r.Name, Description: r.Description.String, CreatedAt: r.CreatedAt})
	}
	return genres, nil
}

// GetGenre retrieves a genre by ID.
func (d *DB) GetGenre(ctx context.Context, id int64) (*domain.Genre, error) {
	var r genreRow
	err := d.sql.GetContext(ctx, &r, "SELECT genre_id, name, description, created_at FROM genres WHERE genre_id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Genre{ID: r.ID, Name: r.Name, Description: r.Description.String, CreatedAt: r.CreatedAt}, nil
}
