package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookstore/internal/client"
)

func (s *shop) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := s.prompt("Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			if err := s.sf.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}
			u := s.sf.State().Session.User
			fmt.Fprintf(s.out, "signed in as %s\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	return cmd
}

func (s *shop) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.sf.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "signed out")
			return nil
		},
	}
}

func (s *shop) registerCmd() *cobra.Command {
	var req client.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Username = args[0]
			if req.Password == "" {
				p, err := s.prompt("Password: ")
				if err != nil {
					return err
				}
				req.Password = p
			}
			msg, err := s.sf.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when empty)")
	return cmd
}

func (s *shop) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !s.sf.State().Session.Authenticated {
				fmt.Fprintln(s.out, "not signed in")
				return nil
			}
			c, err := s.api.Profile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s (%s %s)\n", c.Username, c.FirstName, c.LastName)
			if c.Email != "" {
				fmt.Fprintf(s.out, "  %s\n", c.Email)
			}
			if c.Member {
				fmt.Fprintf(s.out, "  member, %.0f%% discount\n", c.MembershipDiscount*100)
			}
			return nil
		},
	}
}

func (s *shop) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := bufio.NewReader(s.in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", errors.New("empty input")
	}
	return line, nil
}
