package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/immolink/backend/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrNotParticipant, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrInvalidPayload, http.StatusBadRequest, "INVALID"},
		{domain.ErrCollaborationNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrRevisionConflict, http.StatusConflict, "CONFLICT"},
		{domain.NewError(domain.ErrCodeInvalidState, "already answered"), http.StatusUnprocessableEntity, "INVALID_STATE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		status, code := mapError(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("mapError(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}
