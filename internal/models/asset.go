// internal/models/asset.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Asset is a scanned software component and the licenses detected in it.
// Rows are immutable once written.
type Asset struct {
	AssetID                uuid.UUID `json:"asset_id" gorm:"column:asset_id;type:uuid;primaryKey"`
	ProjectID              uuid.UUID `json:"project_id" gorm:"column:project_id;type:uuid;not null"`
	Name                   string    `json:"name" gorm:"column:name;size:255;not null"`
	Licenses               StringSet `json:"licenses" gorm:"column:licenses;not null"`
	LicenseCategories      StringSet `json:"license_categories" gorm:"column:license_categories;not null"`
	OpenSourceMatchPercent float64   `json:"open_source_match_percent" gorm:"column:open_source_match_percent"`
	CreatedAt              time.Time `json:"created_at" gorm:"column:created_at;not null"`
}

func (Asset) TableName() string { return TableAssets }

// Clone returns a copy whose sets share no memory with a.
func (a Asset) Clone() Asset {
	a.Licenses = a.Licenses.Clone()
	a.LicenseCategories = a.LicenseCategories.Clone()
	return a
}

// The types below are the denormalized lookup tables. Each one duplicates the
// whole asset row under a different partition column.

type AssetByProject struct {
	Asset
}

func (AssetByProject) TableName() string { return TableAssetsByProject }

type AssetByName struct {
	Asset
}

func (AssetByName) TableName() string { return TableAssetsByName }

type AssetByLicense struct {
	License string `json:"license" gorm:"column:license;size:255;primaryKey"`
	Asset
}

func (AssetByLicense) TableName() string { return TableAssetsByLicense }

type AssetByCategory struct {
	LicenseCategory string `json:"license_category" gorm:"column:license_category;size:255;primaryKey"`
	Asset
}

func (AssetByCategory) TableName() string { return TableAssetsByCategory }

// LookupRows expands an asset into the rows of every derived table.
func (a Asset) LookupRows() (byProject AssetByProject, byName AssetByName, byLicense []AssetByLicense, byCategory []AssetByCategory) {
	byProject = AssetByProject{Asset: a}
	byName = AssetByName{Asset: a}
	for _, license := range a.Licenses.Normalize() {
		byLicense = append(byLicense, AssetByLicense{License: license, Asset: a})
	}
	for _, category := range a.LicenseCategories.Normalize() {
		byCategory = append(byCategory, AssetByCategory{LicenseCategory: category, Asset: a})
	}
	return byProject, byName, byLicense, byCategory
}
