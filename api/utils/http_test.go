// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnsW3/core-lido/registry/reverts"
)

func TestWrapHandlerFunc(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"no error", nil, http.StatusOK, ""},
		{"bad request", BadRequest(errors.New("bad")), http.StatusBadRequest, "bad"},
		{"forbidden", Forbidden(errors.New("nope")), http.StatusForbidden, "nope"},
		{"status only", HTTPError(nil, http.StatusServiceUnavailable), http.StatusServiceUnavailable, ""},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler := WrapHandlerFunc(func(http.ResponseWriter, *http.Request) error {
				return tt.err
			})
			handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
		})
	}
}

func TestParseJSONStrict(t *testing.T) {
	var v struct {
		Count uint64 `json:"count"`
	}
	require.NoError(t, ParseJSON(strings.NewReader(`{"count": 3}`), &v))
	assert.Equal(t, uint64(3), v.Count)

	assert.Error(t, ParseJSON(strings.NewReader(`{"count": 3, "extra": true}`), &v))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, M{"ok": true}))
	assert.Equal(t, JSONContentType, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestRevertError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{reverts.NotFound("operator %d", 1), http.StatusNotFound},
		{reverts.InvalidArgument("count"), http.StatusBadRequest},
		{reverts.NoOp("unchanged"), http.StatusBadRequest},
		{reverts.InvalidStateTransition("deactivated"), http.StatusConflict},
		{reverts.CapacityExceeded("full"), http.StatusConflict},
		{reverts.Unauthorized("caller"), http.StatusForbidden},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler := WrapHandlerFunc(func(http.ResponseWriter, *http.Request) error {
			return RevertError(tt.err)
		})
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tt.wantStatus, rec.Code, tt.err.Error())
	}

	// non-revert errors pass through untouched
	err := errors.New("boom")
	assert.Equal(t, err, RevertError(err))
}
