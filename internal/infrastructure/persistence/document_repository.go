package persistence

import (
	"context"
	"errors"

	"github.com/erp/taxsync/internal/domain/document"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByKey finds a document by its natural key
func (r *GormDocumentRepository) FindByKey(ctx context.Context, key document.NaturalKey) (*document.TaxDocument, error) {
	var d document.TaxDocument
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ? AND supplier_tax_id = ? AND document_type = ? AND series = ? AND number = ?",
			key.TenantID, key.Period, key.SupplierTaxID, key.DocumentType, key.Series, key.Number).
		First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindByTenantAndPeriod returns all documents for a tenant and period
func (r *GormDocumentRepository) FindByTenantAndPeriod(ctx context.Context, tenantID, period string) ([]document.TaxDocument, error) {
	var docs []document.TaxDocument
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ?", tenantID, period).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Find returns a filtered, paginated page of documents for a tenant
func (r *GormDocumentRepository) Find(ctx context.Context, tenantID string, q document.Query) (shared.Paginated[document.TaxDocument], error) {
	query := r.db.WithContext(ctx).Model(&document.TaxDocument{}).Where("tenant_id = ?", tenantID)

	if q.Period != "" {
		query = query.Where("period = ?", q.Period)
	}
	if q.SupplierTaxID != "" {
		query = query.Where("supplier_tax_id = ?", q.SupplierTaxID)
	}
	if q.DocumentType != "" {
		query = query.Where("document_type = ?", q.DocumentType)
	}
	if q.State != "" {
		query = query.Where("state = ?", q.State)
	}
	if q.IssuedFrom != "" {
		query = query.Where("issue_date >= ?", q.IssuedFrom)
	}
	if q.IssuedTo != "" {
		query = query.Where("issue_date <= ?", q.IssuedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[document.TaxDocument]{}, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	var docs []document.TaxDocument
	if err := query.
		Order("issue_date DESC, created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&docs).Error; err != nil {
		return shared.Paginated[document.TaxDocument]{}, err
	}

	return shared.NewPaginated(docs, total, page, pageSize), nil
}

// Insert creates a new document row
func (r *GormDocumentRepository) Insert(ctx context.Context, d *document.TaxDocument) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// Update saves changes to an existing document row
func (r *GormDocumentRepository) Update(ctx context.Context, d *document.TaxDocument) error {
	result := r.db.WithContext(ctx).Model(&document.TaxDocument{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"supplier_name": d.SupplierName,
			"issue_date":    d.IssueDate,
			"due_date":      d.DueDate,
			"currency":      d.Currency,
			"exchange_rate": d.ExchangeRate,
			"taxable_base":  d.TaxableBase,
			"tax":           d.Tax,
			"non_taxable":   d.NonTaxable,
			"excise":        d.Excise,
			"bag_tax":       d.BagTax,
			"other_taxes":   d.OtherTaxes,
			"total":         d.Total,
			"notes":         d.Notes,
			"content_hash":  d.ContentHash,
			"updated_at":    d.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByPeriod removes all documents for a tenant and period
func (r *GormDocumentRepository) DeleteByPeriod(ctx context.Context, tenantID, period string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ?", tenantID, period).
		Delete(&document.TaxDocument{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteByIDs removes the given documents, scoped to the tenant
func (r *GormDocumentRepository) DeleteByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Delete(&document.TaxDocument{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

type periodRow struct {
	Period string
	Count  int64
	Total  decimal.Decimal
}

type supplierRow struct {
	SupplierTaxID string
	SupplierName  string
	Count         int64
	Total         decimal.Decimal
}

type typeRow struct {
	DocumentType string
	Count        int64
}

// Stats computes the aggregate view for a tenant
func (r *GormDocumentRepository) Stats(ctx context.Context, tenantID string) (*document.Stats, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&document.TaxDocument{}).Where("tenant_id = ?", tenantID)
	}

	stats := &document.Stats{TotalAmount: decimal.Zero}

	var totals struct {
		Count int64
		Total decimal.Decimal
	}
	if err := base().
		Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalDocuments = totals.Count
	stats.TotalAmount = totals.Total

	var periods []periodRow
	if err := base().
		Select("period, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Group("period").
		Order("period DESC").
		Scan(&periods).Error; err != nil {
		return nil, err
	}
	for _, p := range periods {
		stats.ByPeriod = append(stats.ByPeriod, document.PeriodStats{Period: p.Period, Count: p.Count, Total: p.Total})
		stats.Periods = append(stats.Periods, p.Period)
	}

	var suppliers []supplierRow
	if err := base().
		Select("supplier_tax_id, MAX(supplier_name) AS supplier_name, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("supplier_tax_id <> ''").
		Group("supplier_tax_id").
		Order("total DESC").
		Limit(10).
		Scan(&suppliers).Error; err != nil {
		return nil, err
	}
	for _, s := range suppliers {
		stats.TopSuppliers = append(stats.TopSuppliers, document.SupplierStats{
			SupplierTaxID: s.SupplierTaxID,
			SupplierName:  s.SupplierName,
			Count:         s.Count,
			Total:         s.Total,
		})
	}

	var types []typeRow
	if err := base().
		Select("document_type, COUNT(*) AS count").
		Group("document_type").
		Order("count DESC").
		Scan(&types).Error; err != nil {
		return nil, err
	}
	for _, t := range types {
		stats.ByType = append(stats.ByType, document.TypeStats{DocumentType: t.DocumentType, Count: t.Count})
	}

	return stats, nil
}

// IntegrityCounts returns the data-quality counters for a tenant and period
func (r *GormDocumentRepository) IntegrityCounts(ctx context.Context, tenantID, period string) (*document.IntegrityCounts, error) {
	var counts document.IntegrityCounts
	err := r.db.WithContext(ctx).Model(&document.TaxDocument{}).
		Where("tenant_id = ? AND period = ?", tenantID, period).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE TRIM(supplier_tax_id) = '') AS missing_supplier, COUNT(*) FILTER (WHERE issue_date IS NULL OR TRIM(issue_date) = '') AS missing_issue_date, COUNT(*) FILTER (WHERE total <= 0) AS non_positive_total").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

// Periods returns the distinct periods for a tenant, newest first
func (r *GormDocumentRepository) Periods(ctx context.Context, tenantID string) ([]string, error) {
	var periods []string
	if err := r.db.WithContext(ctx).Model(&document.TaxDocument{}).
		Where("tenant_id = ?", tenantID).
		Distinct("period").
		Order("period DESC").
		Pluck("period", &periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

// Ensure GormDocumentRepository implements document.Repository
var _ document.Repository = (*GormDocumentRepository)(nil)
