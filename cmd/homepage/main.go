// Command homepage operates the personal homepage's engagement features and
// live price ticker from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/homepage/internal/auth"
	"github.com/rickgao/homepage/internal/store"
	"github.com/rickgao/homepage/internal/submit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", friendly(err))
		os.Exit(1)
	}
}

// friendly turns the error taxonomy into messages a visitor can act on.
func friendly(err error) string {
	var (
		verr *submit.ValidationError
		serr *submit.StoreError
	)
	if cerr, ok := submit.IsCooldown(err); ok {
		return fmt.Sprintf("please wait %d seconds before posting again", cerr.RemainingSeconds)
	}
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &serr):
		return "could not save your message, please try again"
	case errors.Is(err, store.ErrNotFound):
		return "not found"
	case errors.Is(err, auth.ErrUnauthorized):
		return "admin password rejected"
	}
	return err.Error()
}
