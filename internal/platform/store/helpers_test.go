package store

import (
	"context"
	"errors"
	"testing"

	perr "timeline/internal/platform/errors"
)

type fakeTag int64

func (f fakeTag) String() string      { return "UPDATE" }
func (f fakeTag) RowsAffected() int64 { return int64(f) }

type fakeRows struct {
	vals   []int
	i      int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.vals) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dst ...any) error {
	*(dst[0].(*int)) = r.vals[r.i-1]
	return nil
}
func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     { r.closed = true }

type fakeRow struct {
	v   int
	err error
}

func (r fakeRow) Scan(dst ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dst[0].(*int)) = r.v
	return nil
}

type fakeQ struct {
	tag     CommandTag
	execErr error
	rows    *fakeRows
	qErr    error
	row     fakeRow
}

func (f *fakeQ) Exec(context.Context, string, ...any) (CommandTag, error) { return f.tag, f.execErr }
func (f *fakeQ) Query(context.Context, string, ...any) (Rows, error) {
	if f.qErr != nil {
		return nil, f.qErr
	}
	return f.rows, nil
}
func (f *fakeQ) QueryRow(context.Context, string, ...any) Row { return f.row }

func scanInt(r Row) (int, error) {
	var v int
	err := r.Scan(&v)
	return v, err
}

func TestExecOne(t *testing.T) {
	ctx := context.Background()
	if err := ExecOne(ctx, &fakeQ{tag: fakeTag(1)}, "x"); err != nil {
		t.Fatalf("one row: %v", err)
	}
	if err := ExecOne(ctx, &fakeQ{tag: fakeTag(0)}, "x"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("zero rows: %v", err)
	}
	if err := ExecOne(ctx, &fakeQ{tag: fakeTag(3)}, "x"); err == nil {
		t.Fatalf("three rows should error")
	}
	boom := errors.New("boom")
	if err := ExecOne(ctx, &fakeQ{execErr: boom}, "x"); !errors.Is(err, boom) {
		t.Fatalf("exec error not propagated: %v", err)
	}
}

func TestScalar(t *testing.T) {
	v, err := Scalar[int](context.Background(), &fakeQ{row: fakeRow{v: 7}}, "select 7")
	if err != nil || v != 7 {
		t.Fatalf("Scalar = %d, %v", v, err)
	}
	if _, err := Scalar[int](context.Background(), &fakeQ{row: fakeRow{err: errors.New("x")}}, "q"); err == nil {
		t.Fatalf("expected scan error")
	}
}

func TestOne(t *testing.T) {
	ctx := context.Background()
	rows := &fakeRows{vals: []int{5}}
	v, err := One(ctx, &fakeQ{rows: rows}, scanInt, "q")
	if err != nil || v != 5 || !rows.closed {
		t.Fatalf("One = %d, %v closed=%v", v, err, rows.closed)
	}
	if _, err := One(ctx, &fakeQ{rows: &fakeRows{}}, scanInt, "q"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("no rows: %v", err)
	}
	if _, err := One(ctx, &fakeQ{rows: &fakeRows{vals: []int{1, 2}}}, scanInt, "q"); err == nil {
		t.Fatalf("two rows should error")
	}
	iterErr := errors.New("iter")
	if _, err := One(ctx, &fakeQ{rows: &fakeRows{err: iterErr}}, scanInt, "q"); !errors.Is(err, iterErr) {
		t.Fatalf("rows.Err not surfaced: %v", err)
	}
}

func TestMany(t *testing.T) {
	ctx := context.Background()
	got, err := Many(ctx, &fakeQ{rows: &fakeRows{vals: []int{1, 2, 3}}}, scanInt, "q")
	if err != nil || len(got) != 3 || got[2] != 3 {
		t.Fatalf("Many = %v, %v", got, err)
	}
	qErr := errors.New("q")
	if _, err := Many(ctx, &fakeQ{qErr: qErr}, scanInt, "q"); !errors.Is(err, qErr) {
		t.Fatalf("query error not propagated: %v", err)
	}
}

func TestStore_ZeroAndDisabled(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	if err != nil || s.PG != nil {
		t.Fatalf("Open disabled: %v %v", s, err)
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard with no seams: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var nilStore *Store
	if err := nilStore.Guard(context.Background()); err == nil {
		t.Fatalf("nil store Guard should error")
	}
}

func TestOpen_PGBadURL(t *testing.T) {
	_, err := Open(context.Background(), Config{PG: PGConfig{Enabled: true, URL: "://bad"}})
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOpen_OptionError(t *testing.T) {
	boom := errors.New("opt")
	_, err := Open(context.Background(), Config{}, func(*Store) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("option error not returned: %v", err)
	}
}
