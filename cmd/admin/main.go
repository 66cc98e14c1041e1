package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/securemsg/internal/admin"
	"github.com/dmitrijs2005/securemsg/internal/server"
	"github.com/dmitrijs2005/securemsg/internal/server/config"
)

type backend struct {
	*server.App
}

func (b backend) Users() admin.UserRegistrar { return b.App.Users() }
func (b backend) Export() admin.Exporter     { return b.App.Export() }

func open(ctx context.Context) (admin.Backend, error) {
	app, err := server.NewApp(ctx, config.LoadEnvConfig())
	if err != nil {
		return nil, err
	}
	return backend{app}, nil
}

func main() {
	a := admin.NewApp(os.Stdout, open)
	if err := a.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
