package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"medibook/backend/internal/store"
)

func TestMapConstraintError(t *testing.T) {
	overlap := &pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"}
	if got := mapConstraintError(overlap); !errors.Is(got, store.ErrConflict) {
		t.Fatalf("overlap violation mapped to %v, want ErrConflict", got)
	}

	otherExclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "something_else"}
	if got := mapConstraintError(otherExclusion); errors.Is(got, store.ErrConflict) {
		t.Fatal("unrelated exclusion constraint must not map to ErrConflict")
	}

	plain := errors.New("connection reset")
	if got := mapConstraintError(plain); got != plain {
		t.Fatalf("plain error rewritten to %v", got)
	}

	wrapped := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	if got := mapConstraintError(wrapped); errors.Is(got, store.ErrConflict) {
		t.Fatal("unique violation must not map to slot conflict here")
	}
}
