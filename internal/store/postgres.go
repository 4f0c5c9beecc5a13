package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// InsertChannel is the NOTIFY channel carrying new rows of collection as JSON.
func InsertChannel(collection string) string {
	return collection + "_inserts"
}

// Postgres is a Store backed by a pgx connection pool. Collections map to tables.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres wraps pool.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

func (p *Postgres) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	sql, args := buildSelect(collection, q)
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, classify(err))
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, classify(err))
	}

	out := make([]Record, len(maps))
	for i, m := range maps {
		out[i] = Record(m)
	}
	return out, nil
}

func (p *Postgres) Count(ctx context.Context, collection string, f Filter) (int64, error) {
	sql, args := buildCount(collection, f)
	var n int64
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, classify(err))
	}
	return n, nil
}

func (p *Postgres) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	sql, args := buildInsert(collection, rec)
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", collection, classify(err))
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", collection, classify(err))
	}
	return Record(m), nil
}

func (p *Postgres) Update(ctx context.Context, collection string, f Filter, patch Record) error {
	if len(patch) == 0 {
		return nil
	}
	sql, args := buildUpdate(collection, f, patch)
	return p.exec(ctx, "update", collection, sql, args)
}

func (p *Postgres) Delete(ctx context.Context, collection string, f Filter) error {
	sql, args := buildDelete(collection, f)
	return p.exec(ctx, "delete", collection, sql, args)
}

func (p *Postgres) Increment(ctx context.Context, collection string, f Filter, column string, delta int64) error {
	sql, args := buildIncrement(collection, f, column, delta)
	return p.exec(ctx, "increment", collection, sql, args)
}

func (p *Postgres) exec(ctx context.Context, op, collection, sql string, args []any) error {
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, collection, classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", op, collection, ErrNotFound)
	}
	return nil
}

// SubscribeInserts holds a dedicated connection LISTENing on the collection's
// insert channel. Filtering happens client-side on the decoded payload.
func (p *Postgres) SubscribeInserts(ctx context.Context, collection string, f Filter, fn func(Record)) (Subscription, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}

	channel := pgx.Identifier{InsertChannel(collection)}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}

	// Hijacked so the LISTEN never leaks back into the pool.
	raw := conn.Hijack()

	subCtx, cancel := context.WithCancel(ctx)
	s := &pgSub{cancel: cancel}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer raw.Close(context.Background())

		for {
			n, err := raw.WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					p.logger.Warn("insert subscription ended", "collection", collection, "error", err)
				}
				return
			}

			rec, err := decodeNotification(n.Payload)
			if err != nil {
				p.logger.Warn("dropping undecodable notification", "collection", collection, "error", err)
				continue
			}
			if f.Matches(rec) {
				fn(rec)
			}
		}
	}()

	return s, nil
}

type pgSub struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *pgSub) Unsubscribe() {
	s.cancel()
	s.wg.Wait()
}

func decodeNotification(payload string) (Record, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return Record(m), nil
}

// classify maps backend error codes onto package sentinels.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrUniqueness, pgErr.ConstraintName)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// whereClause renders f with placeholders starting at $start.
func whereClause(f Filter, start int) (string, []any) {
	if len(f) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(f))
	var args []any
	for _, c := range f {
		switch c.Op {
		case OpIsNull:
			parts = append(parts, ident(c.Column)+" IS NULL")
		default:
			args = append(args, c.Value)
			parts = append(parts, fmt.Sprintf("%s = $%d", ident(c.Column), start+len(args)-1))
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func buildSelect(collection string, q Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(ident(collection))

	where, args := whereClause(q.Filter, 1)
	b.WriteString(where)

	if len(q.Order) > 0 {
		cols := make([]string, len(q.Order))
		for i, o := range q.Order {
			cols[i] = ident(o.Column)
			if o.Desc {
				cols[i] += " DESC"
			}
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(cols, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String(), args
}

func buildCount(collection string, f Filter) (string, []any) {
	where, args := whereClause(f, 1)
	return "SELECT count(*) FROM " + ident(collection) + where, args
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(collection string, rec Record) (string, []any) {
	if len(rec) == 0 {
		return "INSERT INTO " + ident(collection) + " DEFAULT VALUES RETURNING *", nil
	}

	keys := sortedKeys(rec)
	cols := make([]string, len(keys))
	holders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = ident(k)
		holders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[k]
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(collection), strings.Join(cols, ", "), strings.Join(holders, ", ")), args
}

func buildUpdate(collection string, f Filter, patch Record) (string, []any) {
	keys := sortedKeys(patch)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(f))
	for i, k := range keys {
		args = append(args, patch[k])
		sets[i] = fmt.Sprintf("%s = $%d", ident(k), i+1)
	}
	where, whereArgs := whereClause(f, len(args)+1)
	args = append(args, whereArgs...)
	return "UPDATE " + ident(collection) + " SET " + strings.Join(sets, ", ") + where, args
}

func buildDelete(collection string, f Filter) (string, []any) {
	where, args := whereClause(f, 1)
	return "DELETE FROM " + ident(collection) + where, args
}

func buildIncrement(collection string, f Filter, column string, delta int64) (string, []any) {
	col := ident(column)
	where, args := whereClause(f, 2)
	return fmt.Sprintf("UPDATE %s SET %s = COALESCE(%s, 0) + $1%s", ident(collection), col, col, where),
		append([]any{delta}, args...)
}
