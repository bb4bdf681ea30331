package document

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sampleDocument() *TaxDocument {
	return &TaxDocument{
		TenantID:      "20123456789",
		Period:        "202401",
		SupplierTaxID: "20987654321",
		SupplierName:  "Proveedor Uno SAC",
		DocumentType:  "01",
		Series:        "F001",
		Number:        "123",
		IssueDate:     "2024-01-15",
		Currency:      "PEN",
		Total:         decimal.RequireFromString("118.00"),
	}
}

func TestComputeContentHash_Deterministic(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()

	assert.Equal(t, a.ComputeContentHash(), b.ComputeContentHash())
	// Repeated calls on the same document are stable
	assert.Equal(t, a.ComputeContentHash(), a.ComputeContentHash())
}

func TestComputeContentHash_EquivalentAmountRepresentations(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.Total = decimal.RequireFromString("118")

	assert.Equal(t, a.ComputeContentHash(), b.ComputeContentHash())
}

func TestComputeContentHash_SensitiveToEveryField(t *testing.T) {
	base := sampleDocument().ComputeContentHash()

	mutations := map[string]func(*TaxDocument){
		"tenant":   func(d *TaxDocument) { d.TenantID = "20111111111" },
		"period":   func(d *TaxDocument) { d.Period = "202402" },
		"supplier": func(d *TaxDocument) { d.SupplierTaxID = "20222222222" },
		"type":     func(d *TaxDocument) { d.DocumentType = "07" },
		"series":   func(d *TaxDocument) { d.Series = "F002" },
		"number":   func(d *TaxDocument) { d.Number = "124" },
		"date":     func(d *TaxDocument) { d.IssueDate = "2024-01-16" },
		"total":    func(d *TaxDocument) { d.Total = decimal.RequireFromString("118.01") },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			d := sampleDocument()
			mutate(d)
			assert.NotEqual(t, base, d.ComputeContentHash())
		})
	}
}

func TestComputeContentHash_IgnoresNonIdentifyingFields(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.SupplierName = "Otro Nombre SAC"
	b.Currency = "USD"

	assert.Equal(t, a.ComputeContentHash(), b.ComputeContentHash())
}

func TestComputeContentHash_IgnoresSupplementaryFields(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.DueDate = "2024-02-15"
	b.NonTaxable = decimal.RequireFromString("10")
	b.Excise = decimal.RequireFromString("2.5")
	b.BagTax = decimal.RequireFromString("0.5")
	b.OtherTaxes = decimal.RequireFromString("1")
	b.Notes = "pago parcial"

	assert.Equal(t, a.ComputeContentHash(), b.ComputeContentHash())
}

func TestKnownState(t *testing.T) {
	for _, s := range []State{StateStored, StateValidated, StateProcessed, StateError} {
		assert.True(t, KnownState(s), string(s))
	}
	assert.False(t, KnownState(State("PENDING")))
	assert.False(t, KnownState(State("")))
}

func TestNaturalKeyString(t *testing.T) {
	d := sampleDocument()

	assert.Equal(t, "20123456789|202401|20987654321|01|F001|123", d.Key().String())
}

func TestApplyUpdate_PreservesKeyAndRefreshesHash(t *testing.T) {
	existing := sampleDocument()
	existing.RefreshContentHash()
	oldHash := existing.ContentHash

	incoming := sampleDocument()
	incoming.Total = decimal.RequireFromString("236.00")
	incoming.SupplierName = "Proveedor Uno S.A.C."

	existing.ApplyUpdate(incoming)

	assert.Equal(t, incoming.Key(), existing.Key())
	assert.Equal(t, "236.00", existing.Total.StringFixed(2))
	assert.NotEqual(t, oldHash, existing.ContentHash)
	assert.Equal(t, existing.ComputeContentHash(), existing.ContentHash)
}

func TestApplyUpdate_CopiesSupplementaryFieldsKeepsLifecycle(t *testing.T) {
	existing := sampleDocument()
	existing.Origin = OriginManual
	existing.State = StateProcessed
	existing.RefreshContentHash()

	incoming := sampleDocument()
	incoming.DueDate = "2024-02-15"
	incoming.BagTax = decimal.RequireFromString("0.50")
	incoming.Notes = "revisar"
	incoming.Origin = OriginRemote
	incoming.State = StateStored

	existing.ApplyUpdate(incoming)

	assert.Equal(t, "2024-02-15", existing.DueDate)
	assert.Equal(t, "0.50", existing.BagTax.StringFixed(2))
	assert.Equal(t, "revisar", existing.Notes)
	assert.Equal(t, OriginManual, existing.Origin)
	assert.Equal(t, StateProcessed, existing.State)
}

func TestIntegrityPredicates(t *testing.T) {
	d := sampleDocument()
	assert.True(t, d.HasSupplier())
	assert.True(t, d.HasIssueDate())
	assert.True(t, d.HasPositiveTotal())

	d.SupplierTaxID = "  "
	d.IssueDate = ""
	d.Total = decimal.Zero
	assert.False(t, d.HasSupplier())
	assert.False(t, d.HasIssueDate())
	assert.False(t, d.HasPositiveTotal())
}
