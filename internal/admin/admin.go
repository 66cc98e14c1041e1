// Package admin implements the securemsg administration commands: creating
// users directly in the store and taking bulk exports.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/filex"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/dmitrijs2005/securemsg/internal/server/validate"
	"github.com/spf13/pflag"
)

type UserRegistrar interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
}

type Exporter interface {
	WriteArchive(ctx context.Context, w io.Writer) error
	Upload(ctx context.Context) (string, string, error)
}

// Backend is what the commands run against.
type Backend interface {
	Users() UserRegistrar
	Export() Exporter
	Close() error
}

// Opener connects to the backend once the command line has been parsed.
type Opener func(ctx context.Context) (Backend, error)

var errUsage = errors.New("usage")

const usage = `Usage:
  admin register -u <name> [-e <email>]
  admin export [-o <dir>] [--upload]

Both commands accept -c/--config <file> with the server JSON configuration.
`

// App runs one admin command.
type App struct {
	out  io.Writer
	open Opener
	now  func() time.Time
}

func NewApp(out io.Writer, open Opener) *App {
	return &App{out: out, open: open, now: time.Now}
}

// Run dispatches args (without the program name) to a command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}

	switch args[0] {
	case "register":
		return a.register(ctx, args[1:])
	case "export":
		return a.export(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	// read by the config loader straight from os.Args
	fs.StringP("config", "c", "", "path to JSON config file")
	return fs
}

func (a *App) register(ctx context.Context, args []string) error {
	var username, email string

	fs := newFlagSet("register")
	fs.SetOutput(a.out)
	fs.StringVarP(&username, "username", "u", "", "user name")
	fs.StringVarP(&email, "email", "e", "", "optional email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	username, err := validate.Username(username)
	if err != nil {
		return err
	}
	email, err = validate.Email(email)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(a.out, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		return errors.New("passwords do not match")
	}
	if err := validate.RegisterPassword(string(password)); err != nil {
		return err
	}

	b, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	u, err := b.Users().Register(ctx, username, string(password), email)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (id %d)\n", u.UserName, u.ID)
	return nil
}

func (a *App) export(ctx context.Context, args []string) error {
	var dir string
	var upload bool

	fs := newFlagSet("export")
	fs.SetOutput(a.out)
	fs.StringVarP(&dir, "output", "o", "exports", "directory for the archive")
	fs.BoolVar(&upload, "upload", false, "upload to the configured bucket instead of writing a file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if upload {
		key, url, err := b.Export().Upload(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Uploaded %s\n%s\n", key, url)
		return nil
	}

	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, a.now().UTC().Format("20060102T150405Z")+".zip")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	if err := b.Export().WriteArchive(ctx, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Wrote %s\n", path)
	return nil
}
