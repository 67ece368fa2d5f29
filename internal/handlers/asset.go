// internal/handlers/asset.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/license-registry/internal/models"
	"github.com/javajoker/license-registry/internal/services"
	"github.com/javajoker/license-registry/internal/utils"
)

type AssetHandler struct {
	assetService *services.AssetService
}

func NewAssetHandler(assetService *services.AssetService) *AssetHandler {
	return &AssetHandler{
		assetService: assetService,
	}
}

// GET /v1/assets
//
// Exactly one lookup is chosen from the query: project_id, name, or any of
// licenses and categories (comma separated). Both licenses and categories
// together select assets matching at least one value of each.
func (h *AssetHandler) GetAssets(c *gin.Context) {
	licenses, hasLicenses := listQuery(c, "licenses")
	categories, hasCategories := listQuery(c, "categories")

	var (
		assets []models.Asset
		err    error
	)
	switch {
	case c.Query("project_id") != "":
		projectID, perr := uuid.Parse(c.Query("project_id"))
		if perr != nil {
			utils.BadRequestResponse(c, "Invalid project ID", nil)
			return
		}
		assets, err = h.assetService.GetAssetsByProjectID(c.Request.Context(), projectID)
	case c.Query("name") != "":
		assets, err = h.assetService.GetAssetsByName(c.Request.Context(), c.Query("name"))
	case hasLicenses && hasCategories:
		assets, err = h.assetService.GetAssetsByLicensesAndCategories(c.Request.Context(), licenses, categories)
	case hasLicenses:
		assets, err = h.assetService.GetAssetsByMultipleLicenses(c.Request.Context(), licenses)
	case hasCategories:
		assets, err = h.assetService.GetAssetsByMultipleCategories(c.Request.Context(), categories)
	default:
		utils.BadRequestResponse(c, "One of project_id, name, licenses or categories is required", nil)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, assets, gin.H{"count": len(assets)})
}

// POST /v1/assets
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req services.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	asset, err := h.assetService.CreateAsset(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, asset)
}

// POST /v1/assets/bulk
func (h *AssetHandler) CreateAssets(c *gin.Context) {
	var req services.CreateAssetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	assets, err := h.assetService.CreateAssets(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, assets)
}

// GET /v1/assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid asset ID", nil)
		return
	}

	asset, err := h.assetService.GetAssetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if asset == nil {
		utils.NotFoundResponse(c, "Asset")
		return
	}

	utils.SuccessResponse(c, asset)
}

// listQuery splits a comma separated query parameter. The second result
// reports whether the parameter was present at all.
func listQuery(c *gin.Context, key string) ([]string, bool) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil, false
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values, true
}
