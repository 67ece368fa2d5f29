// internal/database/index.go
package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/license-registry/internal/models"
)

// The functions below maintain the derived lookup tables. Callers run them
// inside WithTransaction so a primary row and its copies commit together.

// insertBatchSize bounds the rows per INSERT statement. Lookup rows carry at
// most nine columns, which keeps a batch far below the bind-parameter limits
// of sqlite (32766) and postgres (65535).
const insertBatchSize = 500

// InsertAssets writes each asset to the primary table and to every lookup
// table that indexes it.
func InsertAssets(tx *gorm.DB, assets []models.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	var (
		byProject  []models.AssetByProject
		byName     []models.AssetByName
		byLicense  []models.AssetByLicense
		byCategory []models.AssetByCategory
	)
	for _, asset := range assets {
		p, n, l, c := asset.LookupRows()
		byProject = append(byProject, p)
		byName = append(byName, n)
		byLicense = append(byLicense, l...)
		byCategory = append(byCategory, c...)
	}

	if err := tx.CreateInBatches(&assets, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %s: %w", models.TableAssets, err)
	}
	if err := tx.CreateInBatches(&byProject, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %s: %w", models.TableAssetsByProject, err)
	}
	if err := tx.CreateInBatches(&byName, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %s: %w", models.TableAssetsByName, err)
	}
	if len(byLicense) > 0 {
		if err := tx.CreateInBatches(&byLicense, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert %s: %w", models.TableAssetsByLicense, err)
		}
	}
	if len(byCategory) > 0 {
		if err := tx.CreateInBatches(&byCategory, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert %s: %w", models.TableAssetsByCategory, err)
		}
	}
	return nil
}

// InsertUser writes a new user and its organization copy. It fails on an
// existing email.
func InsertUser(tx *gorm.DB, user models.User) error {
	if err := tx.Create(&user).Error; err != nil {
		return fmt.Errorf("insert %s: %w", models.TableUsers, err)
	}
	if user.Organization == "" {
		return nil
	}
	row := user.OrganizationRow()
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert %s: %w", models.TableUsersByOrganization, err)
	}
	return nil
}

// UpsertUser replaces the user row keyed by email and leaves exactly one
// organization copy, or none when the organization is empty. Copies under any
// other organization are removed whatever the caller last read, so concurrent
// replaces cannot leave a stale scoped row behind.
func UpsertUser(tx *gorm.DB, user models.User) error {
	// takes the row lock that serializes writers of this email
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&user).Error; err != nil {
		return fmt.Errorf("upsert %s: %w", models.TableUsers, err)
	}

	stale := tx.Where("email = ?", user.Email)
	if user.Organization != "" {
		stale = stale.Where("organization <> ?", user.Organization)
	}
	if err := stale.Delete(&models.UserByOrganization{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", models.TableUsersByOrganization, err)
	}

	if user.Organization == "" {
		return nil
	}
	row := user.OrganizationRow()
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("upsert %s: %w", models.TableUsersByOrganization, err)
	}
	return nil
}

// DeleteUser removes the user row and every organization copy of it. Deleting
// an unknown email is not an error.
func DeleteUser(tx *gorm.DB, email string) error {
	if err := tx.Where("email = ?", email).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", models.TableUsers, err)
	}
	if err := tx.Where("email = ?", email).Delete(&models.UserByOrganization{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", models.TableUsersByOrganization, err)
	}
	return nil
}
