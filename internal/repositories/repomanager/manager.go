package repomanager

import (
	"context"
	"database/sql"

	"e_store/internal/dbx"
	"e_store/internal/repositories/carts"
	"e_store/internal/repositories/products"
	"e_store/internal/repositories/users"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Products(db dbx.DBTX) products.Repository
	Carts(db dbx.DBTX) carts.Repository
}
