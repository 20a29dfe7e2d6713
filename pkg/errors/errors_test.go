package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	err := fmt.Errorf("outer: %w", Clone(ErrConfiguration, "status rows missing"))

	appErr := FromError(err)
	assert.Equal(t, "CONFIGURATION_ERROR", appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "status rows missing", appErr.Message)
}

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestIsComparesCodes(t *testing.T) {
	assert.True(t, Is(Clone(ErrNotFound, "submission not found"), ErrNotFound))
	assert.False(t, Is(Clone(ErrNotFound, "x"), ErrConflict))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
	assert.Nil(t, FromError(nil))
}
