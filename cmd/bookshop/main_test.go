package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	adapthttp "bookstore/internal/adapter/http"
	"bookstore/internal/adapter/memory"
	"bookstore/internal/app"
)

func newBackend(t *testing.T) string {
	t.Helper()
	db := memory.New()
	memory.Seed(db)

	tokens := app.NewTokenIssuer("test-secret", time.Minute, time.Hour)
	auth := app.NewAuthService(db, db.NewSessionRepo(), tokens).WithHashCost(bcrypt.MinCost)
	profile := app.NewProfileService(db).WithHashCost(bcrypt.MinCost)
	h := adapthttp.New(app.NewCatalogService(db), auth, profile, nil, t.TempDir()).Handler()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}

type cli struct {
	t       *testing.T
	api     string
	session string
}

func (c cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(append([]string{"--api", c.api, "--session", c.session}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newCLI(t *testing.T) cli {
	return cli{t: t, api: newBackend(t), session: filepath.Join(t.TempDir(), "session.json")}
}

func TestCatalogCommands(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "books", "--format", "E_BOOK")
	require.NoError(t, err)
	assert.Contains(t, out, "My Name Is Red")
	assert.Contains(t, out, "Cosmos")
	assert.NotContains(t, out, "Dune")

	out, err = c.run("", "search", "atwood")
	require.NoError(t, err)
	assert.Contains(t, out, "Oryx and Crake")

	out, err = c.run("", "book", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Frank Herbert")

	out, err = c.run("", "authors")
	require.NoError(t, err)
	assert.Contains(t, out, "Pamuk")

	out, err = c.run("", "genres")
	require.NoError(t, err)
	assert.Contains(t, out, "Science Fiction")

	out, err = c.run("", "bestsellers", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cosmos")

	_, err = c.run("", "book", "999")
	require.Error(t, err)
	_, err = c.run("", "book", "abc")
	require.Error(t, err)
}

func TestCartCommands_Persist(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "cart", "add", "5", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "19.98")

	out, err = c.run("", "cart", "add", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "31.23")

	out, err = c.run("", "cart", "set", "5", "0")
	require.NoError(t, err)
	assert.NotContains(t, out, "Dune")

	out, err = c.run("", "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Cosmos")

	out, err = c.run("", "cart", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cart is empty")
}

func TestAccountCommands(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")

	out, err = c.run("", "register", "reader",
		"--first-name", "Ada", "--last-name", "Reed", "--email", "ada@example.com", "--password", "Reader1!pw")
	require.NoError(t, err)
	assert.Contains(t, out, "account created")

	_, err = c.run("wrong\n", "login", "reader")
	require.Error(t, err)

	out, err = c.run("Reader1!pw\n", "login", "reader")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as reader")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")

	_, err = c.run("", "cart", "add", "1")
	require.NoError(t, err)

	out, err = c.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "signed out")

	out, err = c.run("", "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "cart is empty")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}
