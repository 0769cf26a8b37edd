package util_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/library-service/pkg/util"
)

func Test_ToDomainError_PassesThroughDomainErrors(t *testing.T) {
	original := util.NewConflict("book is already issued", map[string]any{"book_id": "b-1"})

	mapped := util.ToDomainError(original)

	require.NotNil(t, mapped)
	assert.Equal(t, "CONFLICT", mapped.Code)
	assert.Equal(t, http.StatusConflict, mapped.HTTPStatus)
	assert.Equal(t, "b-1", mapped.Details["book_id"])
}

func Test_ToDomainError_MapsNoRowsToNotFound(t *testing.T) {
	mapped := util.ToDomainError(pgx.ErrNoRows)

	require.NotNil(t, mapped)
	assert.Equal(t, "NOT_FOUND", mapped.Code)
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
}

func Test_ToDomainError_WrapsUnknownErrors(t *testing.T) {
	cause := errors.New("boom")

	mapped := util.ToDomainError(cause)

	require.NotNil(t, mapped)
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
	assert.ErrorIs(t, mapped, cause)
}

func Test_ErrorKinds_HaveDistinctCodesAndStatuses(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{util.NewNotFound("book", nil), "NOT_FOUND", http.StatusNotFound},
		{util.NewConflict("busy", nil), "CONFLICT", http.StatusConflict},
		{util.NewForbidden("no"), "FORBIDDEN", http.StatusForbidden},
		{util.NewUnauthorized("who"), "UNAUTHORIZED", http.StatusUnauthorized},
		{util.NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{util.NewStoreUnavailable(errors.New("down")), "STORE_UNAVAILABLE", http.StatusServiceUnavailable},
		{util.NewLedgerMismatch("b-1"), "LEDGER_MISMATCH", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		var domainErr *util.DomainError
		require.ErrorAs(t, tc.err, &domainErr)
		assert.Equal(t, tc.code, domainErr.Code)
		assert.Equal(t, tc.status, domainErr.HTTPStatus)
	}
}
