// Package dbctx bundles a request context with an optional in-flight GORM
// transaction, letting repos transparently participate in a caller's
// transaction without threading *gorm.DB through every signature.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction if present, otherwise falls back to base.
func (c Context) DB(base *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return base
}

func Background(tx *gorm.DB) Context {
	return Context{Ctx: context.Background(), Tx: tx}
}
