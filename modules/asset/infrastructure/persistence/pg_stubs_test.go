package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type beginFunc func(ctx context.Context) (pgx.Tx, error)

func (f beginFunc) Begin(ctx context.Context) (pgx.Tx, error) { return f(ctx) }

func txBeginner(tx *txStub) beginFunc {
	return func(context.Context) (pgx.Tx, error) { return tx, nil }
}

func noBegin(t *testing.T) beginFunc {
	t.Helper()
	return func(context.Context) (pgx.Tx, error) {
		t.Fatal("unexpected Begin")
		return nil, nil
	}
}

type txStub struct {
	execErr   error
	execTag   pgconn.CommandTag
	queryErr  error
	rows      *stubRows
	row       pgx.Row
	batchErr  error
	commitErr error

	execSQL   []string
	execArgs  [][]any
	queryArgs [][]any
	batched   int
	committed bool
}

func (t *txStub) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *txStub) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}
func (t *txStub) Rollback(context.Context) error { return nil }
func (t *txStub) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *txStub) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	t.batched += b.Len()
	return fakeBatchResults{err: t.batchErr}
}
func (t *txStub) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (t *txStub) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *txStub) Conn() *pgx.Conn { return nil }

func (t *txStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execSQL = append(t.execSQL, sql)
	t.execArgs = append(t.execArgs, args)
	return t.execTag, t.execErr
}

func (t *txStub) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	t.queryArgs = append(t.queryArgs, args)
	if t.queryErr != nil {
		return nil, t.queryErr
	}
	if t.rows != nil {
		return t.rows, nil
	}
	return &stubRows{}, nil
}

func (t *txStub) QueryRow(context.Context, string, ...any) pgx.Row {
	if t.row != nil {
		return t.row
	}
	return stubRow{err: errors.New("row not mocked")}
}

type stubRows struct {
	data    [][]any
	idx     int
	scanErr error
	err     error
}

func (r *stubRows) Close()                        {}
func (r *stubRows) Err() error                    { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}
func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}
func (r *stubRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return stubRow{vals: r.data[r.idx-1]}.Scan(dest...)
}
func (r *stubRows) Values() ([]any, error) { return nil, nil }
func (r *stubRows) RawValues() [][]byte    { return nil }
func (r *stubRows) Conn() *pgx.Conn        { return nil }

type stubRow struct {
	vals []any
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if i >= len(r.vals) || r.vals[i] == nil {
			continue
		}
		switch d := dest[i].(type) {
		case *string:
			*d = r.vals[i].(string)
		case *[]byte:
			*d = r.vals[i].([]byte)
		}
	}
	return nil
}

type fakeBatchResults struct {
	err error
}

func (f fakeBatchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, f.err }
func (fakeBatchResults) Query() (pgx.Rows, error)           { return &stubRows{}, nil }
func (fakeBatchResults) QueryRow() pgx.Row                  { return stubRow{} }
func (fakeBatchResults) Close() error                       { return nil }
