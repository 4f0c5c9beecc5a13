package writer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertTick = `
	INSERT INTO price_ticks (symbol, price, change_percent_24h, observed_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (symbol, observed_at) DO NOTHING`

// PostgresSink writes ticks with one pgx.Batch per flush.
type PostgresSink struct {
	db *pgxpool.Pool
}

// NewPostgresSink creates a sink over pool.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{db: pool}
}

// InsertTicks implements Sink.
func (s *PostgresSink) InsertTicks(ctx context.Context, ticks []Tick) (int, error) {
	batch := tickBatch(ticks)

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := range ticks {
		ct, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert tick %d: %w", i, err)
		}
		inserted += int(ct.RowsAffected())
	}
	return inserted, nil
}

func tickBatch(ticks []Tick) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, t := range ticks {
		batch.Queue(insertTick, t.Symbol, t.Price, t.ChangePercent24h, t.ObservedAt)
	}
	return batch
}
