package helpers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeday/internal/domain"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		fallback int
		want     domain.PaginationParams
	}{
		{name: "defaults", query: "", fallback: DefaultPageSize, want: domain.PaginationParams{Page: 1, PageSize: 20}},
		{name: "list default", query: "page=3", fallback: 5, want: domain.PaginationParams{Page: 3, PageSize: 5}},
		{name: "explicit size wins", query: "page_size=10", fallback: 5, want: domain.PaginationParams{Page: 1, PageSize: 10}},
		{name: "capped", query: "page_size=1000", fallback: DefaultPageSize, want: domain.PaginationParams{Page: 1, PageSize: MaxPageSize}},
		{name: "invalid values", query: "page=-1&page_size=abc", fallback: DefaultPageSize, want: domain.PaginationParams{Page: 1, PageSize: 20}},
		{name: "page capped", query: "page=9223372036854775807", fallback: DefaultPageSize, want: domain.PaginationParams{Page: MaxPage, PageSize: 20}},
		{name: "zero fallback", query: "", fallback: 0, want: domain.PaginationParams{Page: 1, PageSize: DefaultPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/events?"+tt.query, nil)
			assert.Equal(t, tt.want, ParsePagination(r, tt.fallback))
		})
	}
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(domain.PaginationParams{Page: 2, PageSize: 5}, 11)
	assert.Equal(t, PaginationMeta{Page: 2, PageSize: 5, Total: 11, TotalPages: 3}, meta)

	meta = NewPaginationMeta(domain.PaginationParams{Page: 1}, 11)
	assert.Equal(t, 0, meta.TotalPages)
}

type signupBody struct {
	Email string `json:"email"`
}

func (b signupBody) Validate() []string {
	return ValidationMessages(validation.ValidateStruct(&b,
		validation.Field(&b.Email, validation.Required),
	))
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
		wantMsg  string
	}{
		{name: "valid", body: `{"email":"an@example.com"}`, wantOK: true},
		{name: "unknown field", body: `{"email":"a","role":"admin"}`, wantCode: http.StatusBadRequest, wantMsg: "unknown field"},
		{name: "malformed", body: `{`, wantCode: http.StatusBadRequest},
		{name: "invalid", body: `{"email":""}`, wantCode: http.StatusBadRequest, wantMsg: "email: cannot be blank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			var dest signupBody

			ok := DecodeAndValidate(w, r, &dest)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantCode, w.Code)
			var resp APIResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMsg)
		})
	}
}

func TestValidationMessages(t *testing.T) {
	assert.Nil(t, ValidationMessages(nil))
	assert.Equal(t, []string{"boom"}, ValidationMessages(errors.New("boom")))

	err := validation.Errors{
		"title":    errors.New("cannot be blank"),
		"location": validation.Errors{"lat": errors.New("must be no greater than 90")},
		"ignored":  nil,
	}
	assert.Equal(t, []string{
		"location.lat: must be no greater than 90",
		"title: cannot be blank",
	}, ValidationMessages(err))
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, http.StatusConflict, ErrCodeConflict, "already registered")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":null,"error":{"code":"conflict","message":"already registered"}}`, w.Body.String())

	w = httptest.NewRecorder()
	WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	assert.JSONEq(t, `{"data":{"status":"ok"},"error":null}`, w.Body.String())
}
