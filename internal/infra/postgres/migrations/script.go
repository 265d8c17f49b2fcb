package migrations

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
)

// execScript runs each "--bun:split" separated statement of script in order.
func execScript(ctx context.Context, db *bun.DB, script string) error {
	for _, stmt := range strings.Split(script, "--bun:split") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
