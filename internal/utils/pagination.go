// internal/utils/pagination.go
package utils

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

var ErrInvalidLimit = errors.New("limit must be a non-negative integer")

// KeysetParams are the query parameters of a cursor-paged listing. After is
// empty when the client asks for the first page.
type KeysetParams struct {
	After string `json:"after"`
	Limit int    `json:"limit"`
}

type KeysetResult struct {
	Limit      int         `json:"limit"`
	NextCursor string      `json:"next_cursor"`
	HasMore    bool        `json:"has_more"`
	Data       interface{} `json:"data"`
}

func GetKeysetParams(c *gin.Context, defaultLimit int) (KeysetParams, error) {
	params := KeysetParams{
		After: c.Query("after"),
		Limit: defaultLimit,
	}

	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return params, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
		}
		params.Limit = limit
	}

	return params, nil
}

func SetPaginationHeaders(c *gin.Context, result KeysetResult) {
	c.Header("X-Next-Cursor", result.NextCursor)
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Has-More", strconv.FormatBool(result.HasMore))
}
