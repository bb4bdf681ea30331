package company

import (
	"github.com/erp/taxsync/internal/domain/shared"
)

// Company is a tenant configuration record. Each company is identified by
// its 11-digit tax ID and carries the credentials used to log in to the
// tax authority on its behalf.
type Company struct {
	shared.BaseEntity
	TaxID              string `gorm:"type:varchar(11);uniqueIndex;not null"`
	Name               string `gorm:"type:varchar(255);not null"`
	IntegrationEnabled bool   `gorm:"not null;default:false"`
	ClientID           string `gorm:"type:varchar(64)"`
	ClientSecret       string `gorm:"type:varchar(128)"`
	Username           string `gorm:"type:varchar(64)"`
	Password           string `gorm:"type:varchar(128)"`
}

// TableName returns the database table name
func (Company) TableName() string {
	return "companies"
}

// Credentials is the bundle needed for a remote login
type Credentials struct {
	TaxID        string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// Credentials returns the company's credential bundle
func (c *Company) Credentials() Credentials {
	return Credentials{
		TaxID:        c.TaxID,
		Username:     c.Username,
		Password:     c.Password,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

// HasCompleteCredentials reports whether every credential field is present
func (c *Company) HasCompleteCredentials() bool {
	return c.TaxID != "" && c.Username != "" && c.Password != "" &&
		c.ClientID != "" && c.ClientSecret != ""
}

// FirstMissingField returns the name of the first absent credential field,
// or empty string when the bundle is complete. Order is stable so callers
// can report a deterministic field name.
func (cr Credentials) FirstMissingField() string {
	switch {
	case cr.TaxID == "":
		return "tax_id"
	case cr.Username == "":
		return "username"
	case cr.Password == "":
		return "password"
	case cr.ClientID == "":
		return "client_id"
	case cr.ClientSecret == "":
		return "client_secret"
	}
	return ""
}
