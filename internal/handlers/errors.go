// internal/handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/license-registry/internal/services"
	"github.com/javajoker/license-registry/internal/store"
	"github.com/javajoker/license-registry/internal/utils"
)

// respondError maps service and store errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
	case errors.Is(err, services.ErrInvalidArgument), errors.Is(err, store.ErrInvalidRange):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrUserExists), errors.Is(err, services.ErrAssetExists):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		c.Header("Retry-After", "1")
		utils.ServiceUnavailableResponse(c, "")
	default:
		// schema mismatches land here too; they are not retryable
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}
