package errors

import (
	stderrs "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code string) *pgconn.PgError { return &pgconn.PgError{Code: code} }

func TestDBErrorCodeMappings(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23503", ErrorCodeNotFound},
		{"23502", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"22001", ErrorCodeInvalidArgument},
		{"22P02", ErrorCodeInvalidArgument},
		{"25006", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"XXXXX", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pg(c.code))
		if !ok {
			t.Fatalf("expected ok for PgError code %s", c.code)
		}
		if got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v, want %v", c.code, got, c.want)
		}
	}

	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatalf("DBErrorCode should return ok=false for non-pg error")
	}
}

func TestFromPostgresVariants(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) should be nil")
	}
	if FromPostgresf(nil, "x %d", 1) != nil {
		t.Fatalf("FromPostgresf(nil) should be nil")
	}

	err := FromPostgres(pg("23505"), "insert comment")
	if CodeOf(err) != ErrorCodeDuplicateKey {
		t.Fatalf("FromPostgres map code = %v", CodeOf(err))
	}
	errf := FromPostgresf(pg("23503"), "comment on %s", "post")
	if CodeOf(errf) != ErrorCodeNotFound {
		t.Fatalf("FromPostgresf code = %v, want %v", CodeOf(errf), ErrorCodeNotFound)
	}
	if got := FromPostgres(stderrs.New("conn reset"), "q"); CodeOf(got) != ErrorCodeDB {
		t.Fatalf("non-pg error should map to DB, got %v", CodeOf(got))
	}
}

func TestPredicates(t *testing.T) {
	wrapped := Wrap(pg("23505"), ErrorCodeDB, "outer")
	if !IsDuplicateKey(wrapped) {
		t.Fatalf("IsDuplicateKey should see through wrapping")
	}
	if !IsForeignKeyViolation(pg("23503")) {
		t.Fatalf("IsForeignKeyViolation false for 23503")
	}
	if IsForeignKeyViolation(stderrs.New("x")) {
		t.Fatalf("IsForeignKeyViolation true for foreign error")
	}
}
