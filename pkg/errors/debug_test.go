package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestDumpNamesCollectZConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uq_ratings_pickup_request",
		TableName:      "ratings",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeInvalidState, fmt.Errorf("insert rating: %w", pgErr), "pickup already rated")

	d := Dump(err)
	assert.Equal(t, CodeInvalidState, d.Code)
	assert.Equal(t, "23505", d.PGCode)
	assert.Equal(t, "integrity_constraint_violation", d.PGClass)
	assert.Equal(t, "ratings", d.PGTable)
	assert.Equal(t, "pickup already rated", d.Hint)
	assert.GreaterOrEqual(t, len(d.Chain), 2)
}

func TestDumpReadsLibPQErrors(t *testing.T) {
	err := fmt.Errorf("save user: %w", &pq.Error{Code: "23514", Constraint: "chk_users_role", Table: "users"})

	d := Dump(err)
	assert.Equal(t, "23514", d.PGCode)
	assert.Equal(t, "integrity_constraint_violation", d.PGClass)
	assert.Equal(t, "unknown user role", d.Hint)
}

func TestDumpWithoutDatabaseError(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))

	d := Dump(New(CodeNotFound, "bin not found"))
	assert.Equal(t, CodeNotFound, d.Code)
	assert.Empty(t, d.PGCode)
	assert.Empty(t, d.PGClass)
	assert.Empty(t, d.Hint)
}
