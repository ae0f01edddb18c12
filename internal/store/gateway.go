package store

import (
	"database/sql"
	"fmt"

	"github.com/quillchat/api/internal/store/memory"
	"github.com/quillchat/api/internal/store/sqlite"
)

// Open builds the gateway for the configured driver. The memory driver
// carries no invite-token support and gets the fail-loud stub instead.
func Open(driver string, db *sql.DB) (*Gateway, error) {
	switch driver {
	case "sqlite":
		backend := sqlite.New(db)
		return &Gateway{
			Channels:    backend,
			Messages:    backend,
			Idempotency: backend,
			Invites:     backend,
			Assets:      backend,
			Workspaces:  backend,
			Users:       backend,
			Sessions:    backend,
		}, nil
	case "memory":
		backend := memory.New()
		return &Gateway{
			Channels:    backend,
			Messages:    backend,
			Idempotency: backend,
			Invites:     unsupportedInvites{driver: driver},
			Assets:      backend,
			Workspaces:  backend,
			Users:       backend,
			Sessions:    backend,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
