package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestMakeParseCode(t *testing.T) {
	tests := []struct {
		service, category, sequence int
		expected                    int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{20, 4, 1, 2004001},
		{94, 2, 1, 9402001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.expected), func(t *testing.T) {
			code := MakeCode(tt.service, tt.category, tt.sequence)
			assert.Equal(t, tt.expected, code)

			s, c, q := ParseCode(code)
			assert.Equal(t, tt.service, s)
			assert.Equal(t, tt.category, c)
			assert.Equal(t, tt.sequence, q)
		})
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(&Errno{Code: ErrPatientNotFound.Code, Message: "dup"})
	})
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrNoteStore.Code)
	require.True(t, ok)
	assert.Same(t, ErrNoteStore, e)

	_, ok = Lookup(9999999)
	assert.False(t, ok)
}

func TestWithCauseAndMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrNoteStore.WithCause(cause).WithMessage("could not save note")

	assert.Equal(t, ErrNoteStore.Code, err.Code)
	assert.Equal(t, "could not save note", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrNoteStore)
	assert.Contains(t, err.Error(), "disk full")

	// 原始错误不应被修改
	assert.Equal(t, "Clinical notes unavailable", ErrNoteStore.Message)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("lookup: %w", ErrPatientNotFound)
	assert.Equal(t, ErrPatientNotFound.Code, FromError(wrapped).Code)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus())
}

func TestCodeHelpers(t *testing.T) {
	err := fmt.Errorf("answer: %w", ErrLLMRateLimited)
	assert.True(t, IsCode(err, ErrLLMRateLimited.Code))
	assert.Equal(t, ErrLLMRateLimited.Code, GetCode(err))
	assert.Equal(t, -1, GetCode(errors.New("x")))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrPatientNotFound.HTTPStatus())
	assert.Equal(t, codes.NotFound, ErrPatientNotFound.GRPCStatus())
	assert.Equal(t, http.StatusInternalServerError, (&Errno{}).HTTPStatus())
	assert.Equal(t, codes.Internal, (&Errno{}).GRPCStatus())
}
