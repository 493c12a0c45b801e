package domain_test

import (
	"testing"

	"bookstore/internal/domain"
)

func TestStrongPassword(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"all classes", "Secret1!", true},
		{"too short", "Se1!", false},
		{"no upper", "secret12!", false},
		{"no lower", "SECRET12!", false},
		{"no digit", "Secrets!!", false},
		{"no special", "Secret123", false},
		{"empty", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.StrongPassword(tc.in); got != tc.want {
				t.Errorf("StrongPassword(%q) = %v; want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"PHYSICAL", true},
		{"e_book", true},
		{"Audiobook", true},
		{"hardcover", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := domain.ValidFormat(tc.in); got != tc.want {
			t.Errorf("ValidFormat(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestBookFilterOffset(t *testing.T) {
	f := domain.BookFilter{Page: 3, Size: 20}
	if got := f.Offset(); got != 60 {
		t.Fatalf("expected offset 60, got %d", got)
	}
}

func TestAuthorRefFullName(t *testing.T) {
	a := domain.AuthorRef{FirstName: "Orhan", LastName: "Pamuk"}
	if got := a.FullName(); got != "Orhan Pamuk" {
		t.Fatalf("unexpected full name %q", got)
	}
	if got := (domain.AuthorRef{LastName: "Homer"}).FullName(); got != "Homer" {
		t.Fatalf("unexpected full name %q", got)
	}
}
