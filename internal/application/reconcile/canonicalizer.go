package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/taxsync/internal/domain/document"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Alias tables for the field spellings seen in remote payloads and legacy
// exports. Order matters: the first present, non-null alias wins.
var (
	periodAliases       = []string{"periodo", "perTributario", "per_tributario", "period"}
	supplierIDAliases   = []string{"ruc_proveedor", "rucProveedor", "numDocIdentidadProveedor", "num_doc_identidad_proveedor"}
	supplierNameAliases = []string{"razon_social", "razonSocial", "nomRazonSocialProveedor", "razon_social_proveedor"}
	docTypeAliases      = []string{"tipo_documento", "tipoDocumento", "codTipoCDP", "cod_tipo_cdp", "tipo_comprobante"}
	seriesAliases       = []string{"serie", "numSerieCDP", "num_serie_cdp", "serie_comprobante"}
	numberAliases       = []string{"numero", "numCDP", "num_cdp", "numero_comprobante"}
	issueDateAliases    = []string{"fecha_emision", "fechaEmision", "fecEmisionCDP", "fec_emision_cdp"}
	dueDateAliases      = []string{"fecha_vencimiento", "fechaVencimiento", "fecVencPag", "fec_venc_pag"}
	currencyAliases     = []string{"moneda", "codMoneda", "cod_moneda", "tipo_moneda"}
	exchangeAliases     = []string{"tipo_cambio", "tipoCambio", "mtoTipoCambio", "mto_tipo_cambio"}
	taxableBaseAliases  = []string{"base_imponible", "baseImponible", "mtoBIGravada", "mto_bi_gravada"}
	taxAliases          = []string{"igv", "mtoIGV", "mto_igv", "impuesto"}
	nonTaxableAliases   = []string{"valor_adquisicion_no_gravada", "valorAdquisicionNoGravada", "valorNoGravado", "valor_no_gravado"}
	exciseAliases       = []string{"isc", "ISC", "mtoISC", "mto_isc"}
	bagTaxAliases       = []string{"icbper", "ICBPER", "mtoIcbper", "mto_icbper"}
	otherTaxesAliases   = []string{"otros_tributos", "otrosTributos", "mtoOtrosTrib", "mto_otros_trib"}
	totalAliases        = []string{"total", "importe_total", "importeTotal", "mtoTotalCP", "mto_total_cp", "monto_total"}
	originAliases       = []string{"origen", "origin"}
	stateAliases        = []string{"estado", "state"}
	notesAliases        = []string{"observaciones", "observacion", "notas"}
)

// dateLayouts are tried in order when normalizing issue dates
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

// Canonicalizer maps loosely-shaped document payloads onto the canonical
// document model. Missing text fields become empty strings, missing
// amounts become zero; only an unparseable amount is an error.
type Canonicalizer struct {
	logger *zap.Logger
}

// NewCanonicalizer creates a new Canonicalizer
func NewCanonicalizer(logger *zap.Logger) *Canonicalizer {
	return &Canonicalizer{logger: logger.Named("canonicalizer")}
}

// NewConversionError reports a field whose value could not be interpreted
func NewConversionError(field string, value any) *shared.DomainError {
	return shared.NewDomainError("CONVERSION_ERROR", fmt.Sprintf("Cannot interpret %s value %v", field, value))
}

// Canonicalize builds a canonical document for a tenant from a raw item.
// The explicit period wins over any period alias in the payload; the
// content hash is computed as part of canonicalization.
func (c *Canonicalizer) Canonicalize(tenantID, period string, raw map[string]any) (*document.TaxDocument, error) {
	if period == "" {
		period = digitsOnly(pickString(raw, periodAliases))
	}

	d := &document.TaxDocument{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		Period:        period,
		SupplierTaxID: strings.TrimSpace(pickString(raw, supplierIDAliases)),
		SupplierName:  strings.TrimSpace(pickString(raw, supplierNameAliases)),
		DocumentType:  strings.TrimSpace(pickString(raw, docTypeAliases)),
		Series:        strings.TrimSpace(pickString(raw, seriesAliases)),
		Number:        strings.TrimSpace(pickString(raw, numberAliases)),
		Currency:      strings.TrimSpace(pickString(raw, currencyAliases)),
		Notes:         strings.TrimSpace(pickString(raw, notesAliases)),
	}
	if d.Currency == "" {
		d.Currency = "PEN"
	}
	d.Origin = c.normalizeOrigin(pickString(raw, originAliases))
	d.State = c.normalizeState(pickString(raw, stateAliases))

	d.IssueDate = c.normalizeDate(pickString(raw, issueDateAliases))
	d.DueDate = c.normalizeDate(pickString(raw, dueDateAliases))

	var err error
	if d.ExchangeRate, err = pickAmount(raw, exchangeAliases, "exchange_rate"); err != nil {
		return nil, err
	}
	if d.TaxableBase, err = pickAmount(raw, taxableBaseAliases, "taxable_base"); err != nil {
		return nil, err
	}
	if d.Tax, err = pickAmount(raw, taxAliases, "tax"); err != nil {
		return nil, err
	}
	if d.NonTaxable, err = pickAmount(raw, nonTaxableAliases, "non_taxable"); err != nil {
		return nil, err
	}
	if d.Excise, err = pickAmount(raw, exciseAliases, "excise"); err != nil {
		return nil, err
	}
	if d.BagTax, err = pickAmount(raw, bagTaxAliases, "bag_tax"); err != nil {
		return nil, err
	}
	if d.OtherTaxes, err = pickAmount(raw, otherTaxesAliases, "other_taxes"); err != nil {
		return nil, err
	}
	if d.Total, err = pickAmount(raw, totalAliases, "total"); err != nil {
		return nil, err
	}

	d.RefreshContentHash()
	return d, nil
}

// normalizeOrigin maps a declared origin onto the known tags, defaulting
// to remote since most payloads come from the tax authority
func (c *Canonicalizer) normalizeOrigin(value string) document.Origin {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "REMOTE", "SUNAT":
		return document.OriginRemote
	case "MANUAL":
		return document.OriginManual
	default:
		c.logger.Warn("Unrecognized document origin, assuming remote", zap.String("value", value))
		return document.OriginRemote
	}
}

// normalizeState maps a declared processing state onto the enum. Unknown
// values degrade to the initial state rather than failing the item.
func (c *Canonicalizer) normalizeState(value string) document.State {
	state := document.State(strings.ToUpper(strings.TrimSpace(value)))
	if state == "" {
		return document.StateStored
	}
	if !document.KnownState(state) {
		c.logger.Warn("Unrecognized document state, assuming stored", zap.String("value", value))
		return document.StateStored
	}
	return state
}

// normalizeDate renders any supported date representation as YYYY-MM-DD.
// An unrecognized value degrades to empty string rather than failing the
// whole item.
func (c *Canonicalizer) normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	c.logger.Warn("Unrecognized issue date, leaving empty", zap.String("value", value))
	return ""
}

// pickString returns the first present, non-null alias as a string
func pickString(raw map[string]any, aliases []string) string {
	for _, alias := range aliases {
		value, ok := raw[alias]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case float64:
			// JSON numbers decode as float64; integral values are common
			// for period and document numbers
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d", int64(v))
			}
			return fmt.Sprintf("%v", v)
		case int:
			return fmt.Sprintf("%d", v)
		case int64:
			return fmt.Sprintf("%d", v)
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// pickAmount returns the first present alias as a decimal, zero when no
// alias is present, or a conversion error when the value is unusable
func pickAmount(raw map[string]any, aliases []string, field string) (decimal.Decimal, error) {
	for _, alias := range aliases {
		value, ok := raw[alias]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			trimmed := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
			if trimmed == "" {
				return decimal.Zero, nil
			}
			parsed, err := decimal.NewFromString(trimmed)
			if err != nil {
				return decimal.Zero, NewConversionError(field, v)
			}
			return parsed, nil
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case decimal.Decimal:
			return v, nil
		default:
			return decimal.Zero, NewConversionError(field, v)
		}
	}
	return decimal.Zero, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
