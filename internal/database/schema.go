package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables lists every engagement table, in creation order. Each gets an insert trigger.
var Tables = []string{"posts", "post_comments", "guestbook", "post_likes", "page_views"}

// PriceTicksTable holds recorded feed observations. It has no insert trigger.
const PriceTicksTable = "price_ticks"

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS posts (
		id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		title       text NOT NULL,
		slug        text NOT NULL UNIQUE,
		excerpt     text NOT NULL DEFAULT '',
		content     text NOT NULL DEFAULT '',
		cover_image text NOT NULL DEFAULT '',
		tags        text[] NOT NULL DEFAULT '{}',
		views       bigint NOT NULL DEFAULT 0,
		likes       bigint NOT NULL DEFAULT 0,
		published   boolean NOT NULL DEFAULT false,
		created_at  timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS post_comments (
		id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		post_id    uuid NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		parent_id  uuid REFERENCES post_comments(id) ON DELETE CASCADE,
		name       text NOT NULL,
		content    text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS post_comments_post_id_created_at_idx ON post_comments (post_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS guestbook (
		id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		name       text NOT NULL,
		content    text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS post_likes (
		id                  uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		post_id             uuid NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		visitor_fingerprint text NOT NULL,
		created_at          timestamptz NOT NULL DEFAULT now(),
		UNIQUE (post_id, visitor_fingerprint)
	)`,

	`CREATE TABLE IF NOT EXISTS page_views (
		id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		page_url    text NOT NULL,
		page_title  text NOT NULL DEFAULT '',
		referrer    text NOT NULL DEFAULT '',
		user_agent  text NOT NULL DEFAULT '',
		device_type text NOT NULL DEFAULT 'desktop',
		created_at  timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS price_ticks (
		symbol             text NOT NULL,
		price              numeric NOT NULL,
		change_percent_24h numeric NOT NULL DEFAULT 0,
		observed_at        timestamptz NOT NULL,
		recorded_at        timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (symbol, observed_at)
	)`,

	`CREATE OR REPLACE FUNCTION notify_insert() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify(TG_TABLE_NAME || '_inserts', row_to_json(NEW)::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
}

func notifyTrigger(table string) []string {
	name := pgx.Identifier{table + "_notify_insert"}.Sanitize()
	tbl := pgx.Identifier{table}.Sanitize()
	return []string{
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, name, tbl),
		fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT ON %s FOR EACH ROW EXECUTE FUNCTION notify_insert()`, name, tbl),
	}
}

// Statements returns the full idempotent migration.
func Statements() []string {
	out := append([]string(nil), schema...)
	for _, t := range Tables {
		out = append(out, notifyTrigger(t)...)
	}
	return out
}

// Migrate applies the schema in a single transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for i, stmt := range Statements() {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Info("schema migrated", "tables", len(Tables))
	return nil
}
