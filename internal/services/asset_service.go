// internal/services/asset_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/license-registry/internal/database"
	"github.com/javajoker/license-registry/internal/models"
	"github.com/javajoker/license-registry/internal/retrieval"
	"github.com/javajoker/license-registry/internal/store"
	"github.com/javajoker/license-registry/internal/utils"
)

type AssetService struct {
	db     *gorm.DB
	store  *store.Store
	engine *retrieval.Engine
}

type CreateAssetRequest struct {
	AssetID                *uuid.UUID `json:"asset_id,omitempty"`
	ProjectID              uuid.UUID  `json:"project_id" validate:"required"`
	Name                   string     `json:"name" validate:"required,no_blank,max=255"`
	Licenses               []string   `json:"licenses" validate:"required,min=1,dive,no_blank,max=255"`
	LicenseCategories      []string   `json:"license_categories" validate:"required,min=1,dive,no_blank,max=255"`
	OpenSourceMatchPercent float64    `json:"open_source_match_percent" validate:"gte=0,lte=100"`
}

type CreateAssetsRequest struct {
	Assets []CreateAssetRequest `json:"assets" validate:"required,min=1,max=500,dive"`
}

func NewAssetService(db *gorm.DB, store *store.Store, engine *retrieval.Engine) *AssetService {
	return &AssetService{
		db:     db,
		store:  store,
		engine: engine,
	}
}

// GetAssetByID returns nil without an error when no asset has the id.
func (s *AssetService) GetAssetByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	rows, err := s.store.FindAssets(ctx, models.TableAssets, "asset_id", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *AssetService) GetAssetsByProjectID(ctx context.Context, projectID uuid.UUID) ([]models.Asset, error) {
	return s.store.FindAssets(ctx, models.TableAssetsByProject, "project_id", projectID)
}

func (s *AssetService) GetAssetsByName(ctx context.Context, name string) ([]models.Asset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	return s.store.FindAssets(ctx, models.TableAssetsByName, "name", name)
}

// GetAssetsByMultipleLicenses returns the assets carrying at least one of
// licenses.
func (s *AssetService) GetAssetsByMultipleLicenses(ctx context.Context, licenses []string) ([]models.Asset, error) {
	return s.engine.ByAnyOf(ctx, retrieval.License, licenses)
}

func (s *AssetService) GetAssetsByMultipleCategories(ctx context.Context, categories []string) ([]models.Asset, error) {
	return s.engine.ByAnyOf(ctx, retrieval.Category, categories)
}

// GetAssetsByLicensesAndCategories returns the assets carrying at least one of
// licenses and at least one of categories. Callers that need the exact sets
// must filter the result.
func (s *AssetService) GetAssetsByLicensesAndCategories(ctx context.Context, licenses, categories []string) ([]models.Asset, error) {
	return s.engine.ByAllDimensions(ctx, licenses, categories)
}

func (s *AssetService) CreateAsset(ctx context.Context, req *CreateAssetRequest) (*models.Asset, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	assets, err := s.insert(ctx, []CreateAssetRequest{*req})
	if err != nil {
		return nil, err
	}
	return &assets[0], nil
}

// CreateAssets writes every asset of the batch or none of them.
func (s *AssetService) CreateAssets(ctx context.Context, req *CreateAssetsRequest) ([]models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.insert(ctx, req.Assets)
}

func (s *AssetService) insert(ctx context.Context, reqs []CreateAssetRequest) ([]models.Asset, error) {
	now := time.Now().UTC()
	assets := make([]models.Asset, 0, len(reqs))
	supplied := mapset.NewThreadUnsafeSet[uuid.UUID]()
	for i, req := range reqs {
		asset := models.Asset{
			AssetID:                uuid.New(),
			ProjectID:              req.ProjectID,
			Name:                   req.Name,
			Licenses:               models.NewStringSet(req.Licenses...),
			LicenseCategories:      models.NewStringSet(req.LicenseCategories...),
			OpenSourceMatchPercent: req.OpenSourceMatchPercent,
			// keep insertion order visible within one batch
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
		if req.AssetID != nil {
			if !supplied.Add(*req.AssetID) {
				return nil, fmt.Errorf("%w: asset_id %s appears twice", ErrInvalidArgument, *req.AssetID)
			}
			asset.AssetID = *req.AssetID
		}
		assets = append(assets, asset)
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if supplied.Cardinality() > 0 {
			var existing int64
			if err := tx.Model(&models.Asset{}).Where("asset_id IN ?", supplied.ToSlice()).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return ErrAssetExists
			}
		}
		return database.InsertAssets(tx, assets)
	})
	if err != nil {
		return nil, assetInsertError(err)
	}
	return assets, nil
}

// assetInsertError reports a taken asset_id as ErrAssetExists, including one
// claimed by a concurrent batch after the existence check ran.
func assetInsertError(err error) error {
	switch {
	case errors.Is(err, ErrAssetExists):
		return err
	case store.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrAssetExists, err)
	}
	return fmt.Errorf("failed to create assets: %w", store.Classify(err))
}
