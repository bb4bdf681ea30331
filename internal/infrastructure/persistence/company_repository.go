package persistence

import (
	"context"
	"errors"

	"github.com/erp/taxsync/internal/domain/company"
	"github.com/erp/taxsync/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCompanyRepository implements company.Repository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByTaxID finds a company by its tax ID
func (r *GormCompanyRepository) FindByTaxID(ctx context.Context, taxID string) (*company.Company, error) {
	var c company.Company
	if err := r.db.WithContext(ctx).
		Where("tax_id = ?", taxID).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save inserts or updates a company, keyed on its tax ID
func (r *GormCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tax_id"}},
			UpdateAll: true,
		}).
		Create(c).Error
}

// Ensure GormCompanyRepository implements company.Repository
var _ company.Repository = (*GormCompanyRepository)(nil)
