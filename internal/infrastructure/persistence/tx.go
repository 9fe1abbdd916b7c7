package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const defaultBatchSize = 100

// withTransaction выполняет fn в транзакции: откат при ошибке или панике, иначе commit.
func withTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// batchInserter копит строки и вставляет их одним INSERT ... VALUES (...), (...).
type batchInserter struct {
	tx        *sqlx.Tx
	query     string
	columns   int
	batchSize int
	values    []interface{}
	rows      int
}

func newBatchInserter(tx *sqlx.Tx, query string, columns, batchSize int) *batchInserter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &batchInserter{
		tx:        tx,
		query:     query,
		columns:   columns,
		batchSize: batchSize,
		values:    make([]interface{}, 0, batchSize*columns),
	}
}

func (b *batchInserter) Add(ctx context.Context, row ...interface{}) error {
	if len(row) != b.columns {
		return fmt.Errorf("batch insert: ожидалось %d значений, получено %d", b.columns, len(row))
	}
	b.values = append(b.values, row...)
	b.rows++

	if b.rows >= b.batchSize {
		return b.Flush(ctx)
	}
	return nil
}

func (b *batchInserter) Flush(ctx context.Context) error {
	if b.rows == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(b.query)
	sb.WriteString(" VALUES ")
	for i := 0; i < b.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := 0; j < b.columns; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*b.columns+j+1)
		}
		sb.WriteByte(')')
	}

	if _, err := b.tx.ExecContext(ctx, sb.String(), b.values...); err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}

	b.values = b.values[:0]
	b.rows = 0
	return nil
}
