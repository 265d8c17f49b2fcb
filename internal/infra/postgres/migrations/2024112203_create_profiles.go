package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 2024112203_create_profiles.sql
var createProfilesSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execScript(ctx, db, createProfilesSQL)
		},
		func(ctx context.Context, db *bun.DB) error {
			return execScript(ctx, db, "DROP TABLE IF EXISTS awards --bun:split DROP TABLE IF EXISTS profiles")
		},
	)
}
