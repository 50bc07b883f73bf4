package calregs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/calregs"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := calregs.Errorf(calregs.ENOTFOUND, "checkpoint %q not found", "discovery")

	assert.Equal(t, calregs.ENOTFOUND, calregs.ErrorCode(err))
	assert.Equal(t, "checkpoint \"discovery\" not found", calregs.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, calregs.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, calregs.ErrorMessage(nil))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("parse section: %w", calregs.Errorf(calregs.EINVALID, "no content"))

	assert.Equal(t, calregs.EINVALID, calregs.ErrorCode(err))
	assert.Equal(t, calregs.EINTERNAL, calregs.ErrorCode(errors.New("boom")))
}

func TestErrorType(t *testing.T) {
	t.Parallel()

	t.Run("deadline exceeded is a timeout", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("fetch: %w", context.DeadlineExceeded)
		assert.Equal(t, calregs.ErrorTypeTimeout, calregs.ErrorType(err))
	})

	t.Run("non-success status", func(t *testing.T) {
		t.Parallel()
		err := &calregs.StatusError{StatusCode: 503, URL: "https://example.com"}
		assert.Equal(t, calregs.ErrorTypeHTTPStatus, calregs.ErrorType(err))
		assert.Equal(t, "HTTP 503 for https://example.com", err.Error())
	})

	t.Run("invalid markup is a parse error", func(t *testing.T) {
		t.Parallel()
		err := calregs.Errorf(calregs.EINVALID, "no content region")
		assert.Equal(t, calregs.ErrorTypeParse, calregs.ErrorType(err))
	})

	t.Run("anything else is a fetch error", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, calregs.ErrorTypeFetch, calregs.ErrorType(errors.New("connection reset")))
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, calregs.ErrorTypeCanceled, calregs.ErrorType(context.Canceled))
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, calregs.ErrorType(nil))
	})
}
