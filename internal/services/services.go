// Package services holds the marketplace business rules: authentication,
// the catalog, per-session carts and seller inventory.
package services

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"e_store/internal/repositories/repomanager"
)

// Session is the per-browser state the services read and write.
type Session interface {
	UserEmail() string
	SetUserEmail(email string)
	CartID() string
	SetCartID(id string)
	Clear()
}

// Deps are shared by every service.
type Deps struct {
	DB    *sql.DB
	Repos repomanager.RepositoryManager
	Log   *zap.Logger
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) log() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return zap.NewNop()
}
