package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bookstore/internal/domain"
)

func (s *shop) booksCmd() *cobra.Command {
	var (
		f        domain.BookFilter
		authorID int64
		genreID  int64
	)
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				books []domain.Book
				err   error
			)
			switch {
			case authorID > 0:
				books, err = s.sf.BooksByAuthor(cmd.Context(), authorID)
			case genreID > 0:
				books, err = s.sf.BooksByGenre(cmd.Context(), genreID)
			default:
				books, err = s.sf.FetchBooks(cmd.Context(), f)
			}
			if err != nil {
				return err
			}
			s.printBooks(books)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Title, "title", "", "title contains")
	cmd.Flags().StringVar(&f.Author, "author", "", "author name contains")
	cmd.Flags().StringVar(&f.Genre, "genre", "", "genre name contains")
	cmd.Flags().StringVar(&f.Format, "format", "", "PHYSICAL, E_BOOK or AUDIOBOOK")
	cmd.Flags().IntVar(&f.Page, "page", 0, "page number, from 0")
	cmd.Flags().IntVar(&f.Size, "size", 0, "page size")
	cmd.Flags().Int64Var(&authorID, "author-id", 0, "only books by this author id")
	cmd.Flags().Int64Var(&genreID, "genre-id", 0, "only books in this genre id")
	return cmd
}

func (s *shop) bookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "book <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := s.sf.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s\n", b.Title)
			fmt.Fprintf(s.out, "  by %s\n", b.Author.FullName())
			fmt.Fprintf(s.out, "  %s, %s, $%.2f\n", b.Genre.Name, b.Format, b.Price)
			if b.ISBN != "" {
				fmt.Fprintf(s.out, "  ISBN %s\n", b.ISBN)
			}
			if b.Publisher.Name != "" {
				fmt.Fprintf(s.out, "  published by %s\n", b.Publisher.Name)
			}
			if b.Description != "" {
				fmt.Fprintf(s.out, "\n%s\n", b.Description)
			}
			return nil
		},
	}
}

func (s *shop) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, ISBNs and authors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := s.sf.SearchBooks(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			s.printBooks(books)
			return nil
		},
	}
}

func (s *shop) bestsellersCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "bestsellers",
		Short: "List featured books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := s.sf.Bestsellers(cmd.Context(), limit)
			if err != nil {
				return err
			}
			s.printBooks(books)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of books")
	return cmd
}

func (s *shop) authorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authors",
		Short: "List authors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authors, err := s.sf.FetchAuthors(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, a := range authors {
				fmt.Fprintf(tw, "%d\t%s %s\n", a.ID, a.FirstName, a.LastName)
			}
			return tw.Flush()
		},
	}
}

func (s *shop) genresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List genres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			genres, err := s.sf.FetchGenres(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, g := range genres {
				fmt.Fprintf(tw, "%d\t%s\n", g.ID, g.Name)
			}
			return tw.Flush()
		},
	}
}

func (s *shop) printBooks(books []domain.Book) {
	if len(books) == 0 {
		fmt.Fprintln(s.out, "no books found")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tFORMAT\tPRICE")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\n", b.ID, b.Title, b.Author.FullName(), b.Format, b.Price)
	}
	_ = tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
