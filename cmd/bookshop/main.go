// Command bookshop is a terminal storefront for the bookstore API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"bookstore/internal/client"
	"bookstore/internal/logging"
	"bookstore/internal/storefront"
)

const defaultAPI = "http://localhost:8080"

// shop is the state shared by every subcommand once the root has run.
type shop struct {
	sf  *storefront.Storefront
	api *client.Client
	in  io.Reader
	out io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", client.Message(err))
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var (
		apiURL      string
		sessionPath string
		verbose     bool
	)
	s := &shop{in: in, out: out}

	root := &cobra.Command{
		Use:           "bookshop",
		Short:         "Browse the bookstore catalog and manage your cart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger, err := logging.New(level, "console")
			if err != nil {
				return err
			}

			api, err := client.New(client.Config{BaseURL: apiURL})
			if err != nil {
				return err
			}
			s.api = api

			if sessionPath == "" {
				if sessionPath, err = storefront.DefaultSlotsPath(); err != nil {
					return err
				}
			}
			s.sf = storefront.New(api, storefront.NewFileSlots(sessionPath), logger)
			return s.sf.Restore(cmd.Context())
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	apiDefault := defaultAPI
	if v := strings.TrimSpace(os.Getenv("BOOKSHOP_API_URL")); v != "" {
		apiDefault = v
	}
	root.PersistentFlags().StringVar(&apiURL, "api", apiDefault, "bookstore API base URL (env BOOKSHOP_API_URL)")
	root.PersistentFlags().StringVar(&sessionPath, "session", "", "session file (default $XDG_CONFIG_HOME/bookshop/session.json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		s.booksCmd(),
		s.bookCmd(),
		s.searchCmd(),
		s.bestsellersCmd(),
		s.authorsCmd(),
		s.genresCmd(),
		s.loginCmd(),
		s.logoutCmd(),
		s.registerCmd(),
		s.whoamiCmd(),
		s.cartCmd(),
	)
	return root
}
