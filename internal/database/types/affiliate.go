// Package types holds the database row types.
package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// Affiliate is one user holding the affiliate role after the last run.
type Affiliate struct {
	bun.BaseModel `bun:"table:affiliates"`

	UserID    snowflake.ID `bun:",pk,type:bigint"`
	CreatedAt time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
}
