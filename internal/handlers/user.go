// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/retrieval"
	"github.com/javajoker/license-registry/internal/services"
	"github.com/javajoker/license-registry/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
	pagination  config.PaginationConfig
}

func NewUserHandler(userService *services.UserService, pagination config.PaginationConfig) *UserHandler {
	return &UserHandler{
		userService: userService,
		pagination:  pagination,
	}
}

// GET /v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	params, err := utils.GetKeysetParams(c, h.pagination.DefaultLimit)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	page, err := h.userService.ListUsers(c.Request.Context(), retrieval.ParseCursor(params.After), params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, pageResult(page, params.Limit))
}

// GET /v1/organizations/:organization/users
func (h *UserHandler) ListOrganizationUsers(c *gin.Context) {
	params, err := utils.GetKeysetParams(c, h.pagination.DefaultLimit)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	page, err := h.userService.ListUsersByOrganization(c.Request.Context(), c.Param("organization"), retrieval.ParseCursor(params.After), params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, pageResult(page, params.Limit))
}

// GET /v1/users/:email
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUserByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		utils.NotFoundResponse(c, "User")
		return
	}

	utils.SuccessResponse(c, user)
}

// POST /v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, user)
}

// PUT /v1/users
func (h *UserHandler) CreateOrUpdateUser(c *gin.Context) {
	var req services.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	user, err := h.userService.CreateOrUpdateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// DELETE /v1/users/:email
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("email")); err != nil {
		respondError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

func pageResult(page retrieval.Page, limit int) utils.KeysetResult {
	return utils.KeysetResult{
		Limit:      limit,
		NextCursor: page.NextCursor.String(),
		HasMore:    page.HasMore,
		Data:       page.Users,
	}
}
