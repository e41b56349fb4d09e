package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/knesset-annotations/catmaset/cmd"
	"github.com/knesset-annotations/catmaset/internal/buildinfo"
	"github.com/knesset-annotations/catmaset/internal/errors"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, buildinfo.NewContext(version, buildDate)); err != nil {
		fmt.Fprintf(os.Stderr, "Error (%s): %v\n", errors.CategoryOf(err), err)
		return 1
	}
	return 0
}
