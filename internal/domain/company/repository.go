package company

import "context"

// Repository defines persistence operations for companies
type Repository interface {
	FindByTaxID(ctx context.Context, taxID string) (*Company, error)
	Save(ctx context.Context, c *Company) error
}
