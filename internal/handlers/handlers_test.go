package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/javajoker/license-registry/internal/services"
	"github.com/javajoker/license-registry/internal/store"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", fmt.Errorf("%w: limit -1", services.ErrInvalidArgument), http.StatusBadRequest},
		{"invalid range", store.ErrInvalidRange, http.StatusBadRequest},
		{"validation", services.ErrValidation, http.StatusBadRequest},
		{"user exists", services.ErrUserExists, http.StatusConflict},
		{"asset exists", services.ErrAssetExists, http.StatusConflict},
		{"unavailable", fmt.Errorf("%w: %w", store.ErrStoreUnavailable, context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"schema mismatch", store.ErrSchemaMismatch, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestListQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		target  string
		want    []string
		present bool
	}{
		{"/?licenses=MIT,%20GPL-3.0,,MIT", []string{"MIT", "GPL-3.0", "MIT"}, true},
		{"/?licenses=", nil, true},
		{"/", nil, false},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tt.target, nil)

		got, ok := listQuery(c, "licenses")
		assert.Equal(t, tt.present, ok, tt.target)
		assert.Equal(t, tt.want, got, tt.target)
	}
}
