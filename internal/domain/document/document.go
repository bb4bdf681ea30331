package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Origin records where a document row came from
type Origin string

const (
	// OriginRemote marks rows pulled from the tax authority
	OriginRemote Origin = "REMOTE"
	// OriginManual marks rows entered or imported by back-office users
	OriginManual Origin = "MANUAL"
)

// State is the local processing state of a stored document
type State string

const (
	// StateStored is the initial state of every persisted document
	StateStored State = "STORED"
	// StateValidated marks a document checked by the back office
	StateValidated State = "VALIDATED"
	// StateProcessed marks a document consumed by downstream accounting
	StateProcessed State = "PROCESSED"
	// StateError marks a document that failed downstream processing
	StateError State = "ERROR"
)

// KnownState reports whether the value is one of the processing states
func KnownState(s State) bool {
	switch s {
	case StateStored, StateValidated, StateProcessed, StateError:
		return true
	}
	return false
}

// TaxDocument is a purchase document reported by the tax authority for a
// tenant and period. Documents are identified by their natural key; the
// content hash decides whether an incoming copy is a duplicate or a change.
type TaxDocument struct {
	shared.BaseEntity
	TenantID      string          `gorm:"type:varchar(11);not null;uniqueIndex:idx_documents_natural_key,priority:1"`
	Period        string          `gorm:"type:varchar(6);not null;uniqueIndex:idx_documents_natural_key,priority:2;index:idx_documents_tenant_period"`
	SupplierTaxID string          `gorm:"type:varchar(15);not null;uniqueIndex:idx_documents_natural_key,priority:3;index"`
	SupplierName  string          `gorm:"type:varchar(255)"`
	DocumentType  string          `gorm:"type:varchar(4);not null;uniqueIndex:idx_documents_natural_key,priority:4"`
	Series        string          `gorm:"type:varchar(8);not null;uniqueIndex:idx_documents_natural_key,priority:5"`
	Number        string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_documents_natural_key,priority:6"`
	IssueDate     string          `gorm:"type:varchar(10)"`
	DueDate       string          `gorm:"type:varchar(10)"`
	Currency      string          `gorm:"type:varchar(3);default:'PEN'"`
	ExchangeRate  decimal.Decimal `gorm:"type:decimal(10,4)"`
	TaxableBase   decimal.Decimal `gorm:"type:decimal(15,2)"`
	Tax           decimal.Decimal `gorm:"type:decimal(15,2)"`
	NonTaxable    decimal.Decimal `gorm:"type:decimal(15,2)"`
	Excise        decimal.Decimal `gorm:"type:decimal(15,2)"`
	BagTax        decimal.Decimal `gorm:"type:decimal(15,2)"`
	OtherTaxes    decimal.Decimal `gorm:"type:decimal(15,2)"`
	Total         decimal.Decimal `gorm:"type:decimal(15,2)"`
	Origin        Origin          `gorm:"type:varchar(10);not null;default:'REMOTE'"`
	State         State           `gorm:"type:varchar(10);not null;default:'STORED';index:idx_documents_state"`
	Notes         string          `gorm:"type:text"`
	ContentHash   string          `gorm:"type:varchar(64);not null"`
}

// TableName returns the database table name
func (TaxDocument) TableName() string {
	return "tax_documents"
}

// NaturalKey identifies a document independently of its row ID. Two rows
// with the same natural key describe the same real-world document.
type NaturalKey struct {
	TenantID      string
	Period        string
	SupplierTaxID string
	DocumentType  string
	Series        string
	Number        string
}

// String renders the key as a single pipe-joined value suitable for set
// membership comparisons.
func (k NaturalKey) String() string {
	return strings.Join([]string{
		k.TenantID, k.Period, k.SupplierTaxID, k.DocumentType, k.Series, k.Number,
	}, "|")
}

// Key returns the document's natural key
func (d *TaxDocument) Key() NaturalKey {
	return NaturalKey{
		TenantID:      d.TenantID,
		Period:        d.Period,
		SupplierTaxID: d.SupplierTaxID,
		DocumentType:  d.DocumentType,
		Series:        d.Series,
		Number:        d.Number,
	}
}

// ComputeContentHash derives the SHA-256 content hash from the identifying
// and monetary fields. The hash is a pure function of its inputs; amounts
// are fixed to two decimal places so equal values always hash equally.
func (d *TaxDocument) ComputeContentHash() string {
	payload := strings.Join([]string{
		d.TenantID,
		d.Period,
		d.SupplierTaxID,
		d.DocumentType,
		d.Series,
		d.Number,
		d.IssueDate,
		d.Total.StringFixed(2),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// RefreshContentHash recomputes and stores the content hash
func (d *TaxDocument) RefreshContentHash() {
	d.ContentHash = d.ComputeContentHash()
}

// ApplyUpdate copies the mutable fields from an incoming document and
// refreshes the content hash. The natural key never changes, and neither
// do Origin and State: those track the local lifecycle of the row, not
// the document's content.
func (d *TaxDocument) ApplyUpdate(incoming *TaxDocument) {
	d.SupplierName = incoming.SupplierName
	d.IssueDate = incoming.IssueDate
	d.DueDate = incoming.DueDate
	d.Currency = incoming.Currency
	d.ExchangeRate = incoming.ExchangeRate
	d.TaxableBase = incoming.TaxableBase
	d.Tax = incoming.Tax
	d.NonTaxable = incoming.NonTaxable
	d.Excise = incoming.Excise
	d.BagTax = incoming.BagTax
	d.OtherTaxes = incoming.OtherTaxes
	d.Total = incoming.Total
	d.Notes = incoming.Notes
	d.UpdatedAt = time.Now()
	d.RefreshContentHash()
}

// HasSupplier reports whether the supplier tax ID is present
func (d *TaxDocument) HasSupplier() bool {
	return strings.TrimSpace(d.SupplierTaxID) != ""
}

// HasIssueDate reports whether the issue date is present
func (d *TaxDocument) HasIssueDate() bool {
	return strings.TrimSpace(d.IssueDate) != ""
}

// HasPositiveTotal reports whether the total amount is greater than zero
func (d *TaxDocument) HasPositiveTotal() bool {
	return d.Total.IsPositive()
}
