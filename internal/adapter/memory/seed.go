package memory

import (
	"time"

	"bookstore/internal/domain"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// Seed fills db with a small sample catalog for local development.
func Seed(db *DB) {
	pamuk := db.AddAuthor(domain.Author{FirstName: "Orhan", LastName: "Pamuk", Biography: "Turkish novelist.", BirthDate: date(1952, time.June, 7)})
	atwood := db.AddAuthor(domain.Author{FirstName: "Margaret", LastName: "Atwood", Biography: "Canadian poet and novelist.", BirthDate: date(1939, time.November, 18)})
	herbert := db.AddAuthor(domain.Author{FirstName: "Frank", LastName: "Herbert", BirthDate: date(1920, time.October, 8)})
	sagan := db.AddAuthor(domain.Author{FirstName: "Carl", LastName: "Sagan", BirthDate: date(1934, time.November, 9)})

	fiction := db.AddGenre(domain.Genre{Name: "Fiction", Description: "Literary fiction."})
	scifi := db.AddGenre(domain.Genre{Name: "Science Fiction", Description: "Speculative futures."})
	science := db.AddGenre(domain.Genre{Name: "Science", Description: "Popular science."})

	knopf := db.AddPublisher(domain.Publisher{Name: "Knopf"})
	ace := db.AddPublisher(domain.Publisher{Name: "Ace Books"})

	books := []domain.Book{
		{Title: "Snow", ISBN: "978-0375706868", Price: 17.95, Format: domain.FormatPhysical, PublicationDate: date(2004, time.August, 10),
			Author: domain.AuthorRef{ID: pamuk}, Genre: domain.GenreRef{ID: fiction}, Publisher: domain.PublisherRef{ID: knopf}},
		{Title: "My Name Is Red", ISBN: "978-0375706851", Price: 12.99, Format: domain.FormatEBook, PublicationDate: date(2001, time.August, 28),
			Author: domain.AuthorRef{ID: pamuk}, Genre: domain.GenreRef{ID: fiction}, Publisher: domain.PublisherRef{ID: knopf}},
		{Title: "The Handmaid's Tale", ISBN: "978-0385490818", Price: 15.00, Format: domain.FormatPhysical, PublicationDate: date(1986, time.February, 17),
			Author: domain.AuthorRef{ID: atwood}, Genre: domain.GenreRef{ID: fiction}},
		{Title: "Oryx and Crake", ISBN: "978-0385721677", Price: 21.50, Format: domain.FormatAudiobook, PublicationDate: date(2003, time.May, 6),
			Author: domain.AuthorRef{ID: atwood}, Genre: domain.GenreRef{ID: scifi}},
		{Title: "Dune", ISBN: "978-0441172719", Price: 9.99, Format: domain.FormatPhysical, PublicationDate: date(1965, time.August, 1),
			Author: domain.AuthorRef{ID: herbert}, Genre: domain.GenreRef{ID: scifi}, Publisher: domain.PublisherRef{ID: ace}},
		{Title: "Cosmos", ISBN: "978-0345539434", Price: 11.25, Format: domain.FormatEBook, PublicationDate: date(1980, time.January, 1),
			Author: domain.AuthorRef{ID: sagan}, Genre: domain.GenreRef{ID: science}},
	}
	for _, b := range books {
		db.AddBook(b)
	}
}
