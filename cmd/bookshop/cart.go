package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bookstore/internal/storefront"
)

func (s *shop) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.printCart()
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <book-id> [quantity]",
			Short: "Add a book",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				qty := 1
				if len(args) == 2 {
					if qty, err = strconv.Atoi(args[1]); err != nil {
						return fmt.Errorf("invalid quantity %q", args[1])
					}
				}
				b, err := s.sf.GetBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := s.sf.AddToCart(storefront.ItemFromBook(*b), qty); err != nil {
					return err
				}
				s.printCart()
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <book-id>",
			Short: "Remove a book",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := s.sf.RemoveFromCart(id); err != nil {
					return err
				}
				s.printCart()
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <book-id> <quantity>",
			Short: "Set a book's quantity; 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				qty, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
				if err := s.sf.SetQuantity(id, qty); err != nil {
					return err
				}
				s.printCart()
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s.printCart()
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := s.sf.ClearCart(); err != nil {
					return err
				}
				s.printCart()
				return nil
			},
		},
	)
	return cmd
}

func (s *shop) printCart() {
	st := s.sf.State()
	if len(st.Cart) == 0 {
		fmt.Fprintln(s.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFORMAT\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range st.Cart {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t%.2f\n", l.ItemID, l.Title, l.Format, l.Quantity, l.UnitPrice, l.UnitPrice*float64(l.Quantity))
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t%.2f\n", st.ItemCount(), st.Total())
	_ = tw.Flush()
}
