package document

import (
	"context"

	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Query holds the supported listing filters
type Query struct {
	Period        string
	SupplierTaxID string
	DocumentType  string
	State         State
	IssuedFrom    string
	IssuedTo      string
	Page          int
	PageSize      int
}

// PeriodStats aggregates documents for one period
type PeriodStats struct {
	Period string          `json:"period"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// SupplierStats aggregates documents for one supplier
type SupplierStats struct {
	SupplierTaxID string          `json:"supplier_tax_id"`
	SupplierName  string          `json:"supplier_name"`
	Count         int64           `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

// TypeStats aggregates documents by document type
type TypeStats struct {
	DocumentType string `json:"document_type"`
	Count        int64  `json:"count"`
}

// Stats is the full aggregation payload for a tenant
type Stats struct {
	TotalDocuments int64           `json:"total_documents"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ByPeriod       []PeriodStats   `json:"by_period"`
	TopSuppliers   []SupplierStats `json:"top_suppliers"`
	ByType         []TypeStats     `json:"by_type"`
	Periods        []string        `json:"periods"`
}

// IntegrityCounts holds the data-quality counters used by health checks
type IntegrityCounts struct {
	Total            int64
	MissingSupplier  int64
	MissingIssueDate int64
	NonPositiveTotal int64
}

// Repository defines persistence operations for tax documents
type Repository interface {
	FindByKey(ctx context.Context, key NaturalKey) (*TaxDocument, error)
	FindByTenantAndPeriod(ctx context.Context, tenantID, period string) ([]TaxDocument, error)
	Find(ctx context.Context, tenantID string, q Query) (shared.Paginated[TaxDocument], error)
	Insert(ctx context.Context, d *TaxDocument) error
	Update(ctx context.Context, d *TaxDocument) error
	DeleteByPeriod(ctx context.Context, tenantID, period string) (int64, error)
	DeleteByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) (int64, error)
	Stats(ctx context.Context, tenantID string) (*Stats, error)
	IntegrityCounts(ctx context.Context, tenantID, period string) (*IntegrityCounts, error)
	Periods(ctx context.Context, tenantID string) ([]string, error)
}
