package storefront

import "bookstore/internal/domain"

// AuthStatus is the session's position in the login state machine.
type AuthStatus int

const (
	Anonymous AuthStatus = iota
	Authenticating
	Authenticated
)

func (s AuthStatus) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "anonymous"
}

// Item is the product a cart line refers to.
type Item struct {
	ID       int64   `json:"id"`
	Price    float64 `json:"price"`
	Title    string  `json:"title"`
	ImageRef string  `json:"imageRef,omitempty"`
	Format   string  `json:"format,omitempty"`
	Genre    string  `json:"genre,omitempty"`
}

// ItemFromBook builds a cart item from a catalog book.
func ItemFromBook(b domain.Book) Item {
	return Item{
		ID:       b.ID,
		Price:    b.Price,
		Title:    b.Title,
		ImageRef: b.CoverImageURL,
		Format:   b.Format,
		Genre:    b.Genre.Name,
	}
}

// CartLine is one product in the cart. Quantity is always >= 1.
type CartLine struct {
	ItemID    int64   `json:"itemId"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	Title     string  `json:"title"`
	ImageRef  string  `json:"imageRef,omitempty"`
	Format    string  `json:"format,omitempty"`
	Genre     string  `json:"genre,omitempty"`
}

// Session is the authenticated identity, if any. Authenticated implies
// User and AccessToken are set.
type Session struct {
	Authenticated bool
	User          *domain.Customer
	AccessToken   string
	RefreshToken  string
}

// State is an immutable snapshot of the storefront. Reduce never mutates a
// State it is given.
type State struct {
	Cart    []CartLine
	Session Session
	Status  AuthStatus
	Loading bool
	Error   string

	// RegisterMessage is the server's reply to the last successful registration.
	RegisterMessage string

	Books   []domain.Book
	Book    *domain.Book
	Authors []domain.Author
	Genres  []domain.Genre

	// QueryGen identifies the latest book query; older results are dropped.
	QueryGen uint64
}

// Total is the sum of unit price times quantity over all lines.
func (s State) Total() float64 {
	var total float64
	for _, l := range s.Cart {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (s State) ItemCount() int {
	n := 0
	for _, l := range s.Cart {
		n += l.Quantity
	}
	return n
}

// Line returns the cart line for itemID.
func (s State) Line(itemID int64) (CartLine, bool) {
	for _, l := range s.Cart {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return CartLine{}, false
}
