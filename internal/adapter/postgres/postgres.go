package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps a *sqlx.DB and implements domain repository interfaces.
type DB struct {
	sql *sqlx.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Wrap adopts an existing connection without pinging or migrating.
func Wrap(s *sql.DB) *DB {
	return &DB{sql: sqlx.NewDb(s, "postgres")}
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

var migrations = []string{
	"CREATE TABLE IF NOT EXISTS publishers (publisher_id BIGSERIAL PRIMARY KEY, name TEXT NOT NULL, address TEXT, phone TEXT, email TEXT, created_at TIMESTAMPTZ NOT NULL DEFAULT now());",
	"CREATE TABLE IF NOT EXISTS authors (author_id BIGSERIAL PRIMARY KEY, first_name TEXT NOT NULL, last_name TEXT NOT NULL, biography TEXT, birth_date DATE, email TEXT, created_at TIMESTAMPTZ NOT NULL DEFAULT now());",
	"CREATE TABLE IF NOT EXISTS genres (genre_id BIGSERIAL PRIMARY KEY, name TEXT UNIQUE NOT NULL, description TEXT, created_at TIMESTAMPTZ NOT NULL DEFAULT now());",
	"CREATE TABLE IF NOT EXISTS books (book_id BIGSERIAL PRIMARY KEY, title TEXT NOT NULL, isbn TEXT UNIQUE, author_id BIGINT NOT NULL REFERENCES authors(author_id), genre_id BIGINT NOT NULL REFERENCES genres(genre_id), publisher_id BIGINT REFERENCES publishers(publisher_id), publication_date DATE, price NUMERIC(10,2) NOT NULL CHECK(price >= 0), format TEXT NOT NULL CHECK(format IN ('PHYSICAL','E_BOOK','AUDIOBOOK')), description TEXT, cover_image_url TEXT, created_at TIMESTAMPTZ NOT NULL DEFAULT now());",
	"CREATE INDEX IF NOT EXISTS idx_books_author_id ON books(author_id);",
	"CREATE INDEX IF NOT EXISTS idx_books_genre_id ON books(genre_id);",
	"CREATE INDEX IF NOT EXISTS idx_books_format ON books(format);",
	"CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);",
	"CREATE TABLE IF NOT EXISTS customers (customer_id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, first_name TEXT NOT NULL DEFAULT '', last_name TEXT NOT NULL DEFAULT '', email TEXT UNIQUE, password_hash TEXT NOT NULL DEFAULT '', phone TEXT, address TEXT, is_active BOOLEAN NOT NULL DEFAULT TRUE, is_member BOOLEAN NOT NULL DEFAULT FALSE, membership_discount NUMERIC(5,2) NOT NULL DEFAULT 0, roles TEXT[] NOT NULL DEFAULT '{USER}', last_login TIMESTAMPTZ, created_at TIMESTAMPTZ NOT NULL);",
	"CREATE TABLE IF NOT EXISTS refresh_sessions (token_id TEXT PRIMARY KEY, customer_id BIGINT NOT NULL REFERENCES customers(customer_id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', ip TEXT NOT NULL DEFAULT '', expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
	"CREATE INDEX IF NOT EXISTS idx_refresh_sessions_expires_at ON refresh_sessions(expires_at);",
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
