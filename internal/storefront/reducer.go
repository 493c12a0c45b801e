package storefront

import "bookstore/internal/domain"

// Action is a state transition applied by Reduce.
type Action interface {
	isAction()
}

type (
	// AddItem adds Qty of Item, merging into an existing line. Qty <= 0 adds one.
	AddItem struct {
		Item Item
		Qty  int
	}
	RemoveItem struct {
		ItemID int64
	}
	// SetQuantity sets a line's quantity exactly; Qty <= 0 removes the line.
	SetQuantity struct {
		ItemID int64
		Qty    int
	}
	ClearCart struct{}
	// RestoreCart replaces the cart with previously persisted lines.
	RestoreCart struct {
		Lines []CartLine
	}

	LoginStarted   struct{}
	LoginSucceeded struct {
		User         *domain.Customer
		AccessToken  string
		RefreshToken string
	}
	LoginFailed struct {
		Err string
	}
	RegisterStarted   struct{}
	RegisterSucceeded struct {
		Message string
	}
	RegisterFailed struct {
		Err string
	}
	TokenRefreshed struct {
		AccessToken string
	}
	// Logout ends the session and empties the cart.
	Logout struct{}

	SetLoading struct {
		Loading bool
	}
	SetError struct {
		Err string
	}
	ClearError struct{}

	// OperationStarted marks a fetch in flight and clears the previous error.
	OperationStarted struct{}

	// QueryStarted opens a new book query and supersedes any earlier one.
	QueryStarted struct{}
	BooksLoaded  struct {
		Gen   uint64
		Books []domain.Book
	}
	QueryFailed struct {
		Gen uint64
		Err string
	}
	BookLoaded struct {
		Book *domain.Book
	}
	AuthorsLoaded struct {
		Authors []domain.Author
	}
	GenresLoaded struct {
		Genres []domain.Genre
	}
)

func (AddItem) isAction()           {}
func (RemoveItem) isAction()        {}
func (SetQuantity) isAction()       {}
func (ClearCart) isAction()         {}
func (RestoreCart) isAction()       {}
func (LoginStarted) isAction()      {}
func (LoginSucceeded) isAction()    {}
func (LoginFailed) isAction()       {}
func (RegisterStarted) isAction()   {}
func (RegisterSucceeded) isAction() {}
func (RegisterFailed) isAction()    {}
func (TokenRefreshed) isAction()    {}
func (Logout) isAction()            {}
func (SetLoading) isAction()        {}
func (SetError) isAction()          {}
func (ClearError) isAction()        {}
func (OperationStarted) isAction()  {}
func (QueryStarted) isAction()      {}
func (BooksLoaded) isAction()       {}
func (QueryFailed) isAction()       {}
func (BookLoaded) isAction()        {}
func (AuthorsLoaded) isAction()     {}
func (GenresLoaded) isAction()      {}

// Reduce returns the state that results from applying a to s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddItem:
		qty := a.Qty
		if qty <= 0 {
			qty = 1
		}
		cart := make([]CartLine, 0, len(s.Cart)+1)
		found := false
		for _, l := range s.Cart {
			if l.ItemID == a.Item.ID {
				l.Quantity += qty
				found = true
			}
			cart = append(cart, l)
		}
		if !found {
			cart = append(cart, CartLine{
				ItemID:    a.Item.ID,
				UnitPrice: a.Item.Price,
				Quantity:  qty,
				Title:     a.Item.Title,
				ImageRef:  a.Item.ImageRef,
				Format:    a.Item.Format,
				Genre:     a.Item.Genre,
			})
		}
		s.Cart = cart

	case RemoveItem:
		s.Cart = without(s.Cart, a.ItemID)

	case SetQuantity:
		if a.Qty <= 0 {
			s.Cart = without(s.Cart, a.ItemID)
			break
		}
		cart := make([]CartLine, len(s.Cart))
		copy(cart, s.Cart)
		for i := range cart {
			if cart[i].ItemID == a.ItemID {
				cart[i].Quantity = a.Qty
			}
		}
		s.Cart = cart

	case ClearCart:
		s.Cart = nil

	case RestoreCart:
		var cart []CartLine
		seen := make(map[int64]bool, len(a.Lines))
		for _, l := range a.Lines {
			if l.Quantity < 1 || seen[l.ItemID] {
				continue
			}
			seen[l.ItemID] = true
			cart = append(cart, l)
		}
		s.Cart = cart

	case LoginStarted:
		s.Status = Authenticating
		s.Session = Session{}
		s.Loading = true
		s.Error = ""

	case LoginSucceeded:
		if a.User == nil || a.AccessToken == "" {
			s.Status = Anonymous
			s.Session = Session{}
			s.Loading = false
			s.Error = ErrIncompleteLogin.Error()
			break
		}
		s.Status = Authenticated
		s.Session = Session{
			Authenticated: true,
			User:          a.User,
			AccessToken:   a.AccessToken,
			RefreshToken:  a.RefreshToken,
		}
		s.Loading = false
		s.Error = ""

	case LoginFailed:
		s.Status = Anonymous
		s.Session = Session{}
		s.Loading = false
		s.Error = a.Err

	case RegisterStarted:
		s.Loading = true
		s.Error = ""
		s.RegisterMessage = ""

	case RegisterSucceeded:
		s.Loading = false
		s.RegisterMessage = a.Message

	case RegisterFailed:
		s.Loading = false
		s.Error = a.Err

	case TokenRefreshed:
		if s.Session.Authenticated {
			s.Session.AccessToken = a.AccessToken
		}

	case Logout:
		s.Status = Anonymous
		s.Session = Session{}
		s.Cart = nil
		s.Loading = false
		s.Error = ""

	case SetLoading:
		s.Loading = a.Loading

	case OperationStarted:
		s.Loading = true
		s.Error = ""

	case SetError:
		s.Error = a.Err
		s.Loading = false

	case ClearError:
		s.Error = ""

	case QueryStarted:
		s.QueryGen++
		s.Loading = true
		s.Error = ""

	case BooksLoaded:
		if a.Gen != s.QueryGen {
			break
		}
		s.Books = a.Books
		s.Loading = false

	case QueryFailed:
		if a.Gen != s.QueryGen {
			break
		}
		s.Error = a.Err
		s.Loading = false

	case BookLoaded:
		s.Book = a.Book
		s.Loading = false

	case AuthorsLoaded:
		s.Authors = a.Authors
		s.Loading = false

	case GenresLoaded:
		s.Genres = a.Genres
		s.Loading = false
	}
	return s
}

func without(cart []CartLine, itemID int64) []CartLine {
	out := make([]CartLine, 0, len(cart))
	for _, l := range cart {
		if l.ItemID != itemID {
			out = append(out, l)
		}
	}
	return out
}
