package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
)

// columns maps sheet column positions onto message_log columns.
var columns = [msglog.NumColumns]string{"timestamp_iso", "status", "chat_id", "message_id", "from_label", "body"}

// Table is a msglog.Table over the message_log relation. Each tab is a
// namespace of rows numbered like a sheet: header at 1, data from 2.
type Table struct {
	db  *sql.DB
	tab string
}

var _ msglog.Table = (*Table)(nil)

func NewTable(db *sql.DB, tab string) *Table { return &Table{db: db, tab: tab} }

// ReadRange implements msglog.Table. Missing rows inside the range come back
// as empty slices so positions stay aligned with row numbers.
func (t *Table) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	rng, err := msglog.ParseA1(a1)
	if err != nil {
		return nil, err
	}
	start := max(rng.StartRow, 1)
	q := `SELECT row_num, timestamp_iso, status, chat_id, message_id, from_label, body
		FROM message_log WHERE tab = $1 AND row_num >= $2 AND ($3 = 0 OR row_num <= $3)
		ORDER BY row_num`
	rows, err := t.db.QueryContext(ctx, q, t.tab, start, rng.EndRow)
	if err != nil {
		return nil, fmt.Errorf("query message_log: %w", err)
	}
	defer rows.Close()

	var out [][]string
	next := start
	for rows.Next() {
		var (
			n     int
			cells [msglog.NumColumns]string
		)
		if err := rows.Scan(&n, &cells[0], &cells[1], &cells[2], &cells[3], &cells[4], &cells[5]); err != nil {
			return nil, fmt.Errorf("scan message_log: %w", err)
		}
		for ; next < n; next++ {
			out = append(out, nil)
		}
		out = append(out, sliceColumns(cells, rng))
		next = n + 1
	}
	return out, rows.Err()
}

// Append implements msglog.Table. An advisory lock per tab keeps row numbers
// dense under concurrent appends.
func (t *Table) Append(ctx context.Context, row []string) error {
	return t.inTx(ctx, func(tx *sql.Tx) error {
		n, err := t.lockAndCount(ctx, tx)
		if err != nil {
			return err
		}
		return upsert(ctx, tx, t.tab, max(n, msglog.HeaderRows)+1, padRow(row))
	})
}

// UpdateRange implements msglog.Table for ranges within a single row.
func (t *Table) UpdateRange(ctx context.Context, a1 string, row []string) error {
	rng, err := msglog.ParseA1(a1)
	if err != nil {
		return err
	}
	if rng.StartRow == 0 || rng.EndRow != rng.StartRow {
		return fmt.Errorf("update %q: only single-row ranges are supported", a1)
	}
	return t.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := t.lockAndCount(ctx, tx); err != nil {
			return err
		}
		var cur [msglog.NumColumns]string
		err := tx.QueryRowContext(ctx, `SELECT timestamp_iso, status, chat_id, message_id, from_label, body
			FROM message_log WHERE tab = $1 AND row_num = $2`, t.tab, rng.StartRow).
			Scan(&cur[0], &cur[1], &cur[2], &cur[3], &cur[4], &cur[5])
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load row %d: %w", rng.StartRow, err)
		}
		for i, v := range row {
			c := rng.StartCol + i
			if c > rng.EndCol || c >= msglog.NumColumns {
				break
			}
			cur[c] = v
		}
		return upsert(ctx, tx, t.tab, rng.StartRow, cur)
	})
}

// EnsureTab implements msglog.Table by writing the header row.
func (t *Table) EnsureTab(ctx context.Context) error {
	return t.UpdateRange(ctx, msglog.HeaderRange, msglog.Header)
}

// Ping reports whether the database is reachable.
func (t *Table) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }

func (t *Table) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *Table) lockAndCount(ctx context.Context, tx *sql.Tx) (int, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "message_log:"+t.tab); err != nil {
		return 0, fmt.Errorf("lock tab: %w", err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(row_num), 0) FROM message_log WHERE tab = $1`, t.tab).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func upsert(ctx context.Context, tx *sql.Tx, tab string, rowNum int, v [msglog.NumColumns]string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO message_log
		(tab, row_num, timestamp_iso, status, chat_id, message_id, from_label, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tab, row_num) DO UPDATE SET
			timestamp_iso = EXCLUDED.timestamp_iso, status = EXCLUDED.status,
			chat_id = EXCLUDED.chat_id, message_id = EXCLUDED.message_id,
			from_label = EXCLUDED.from_label, body = EXCLUDED.body`,
		tab, rowNum, v[0], v[1], v[2], v[3], v[4], v[5])
	if err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

func padRow(row []string) [msglog.NumColumns]string {
	var out [msglog.NumColumns]string
	copy(out[:], row)
	return out
}

func sliceColumns(cells [msglog.NumColumns]string, rng msglog.Range) []string {
	end := min(rng.EndCol, msglog.NumColumns-1)
	if rng.StartCol > end {
		return nil
	}
	return append([]string(nil), cells[rng.StartCol:end+1]...)
}
