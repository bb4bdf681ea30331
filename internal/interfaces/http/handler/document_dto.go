package handler

import (
	"github.com/erp/taxsync/internal/domain/document"
	"github.com/google/uuid"
)

// UpsertDocumentsRequest carries a batch of raw document items for one
// period. Item shape is deliberately loose: canonicalization happens in
// the application layer.
type UpsertDocumentsRequest struct {
	Period string           `json:"period" binding:"required"`
	Items  []map[string]any `json:"items" binding:"required"`
}

// DiffDocumentsRequest carries a remote snapshot to compare against
type DiffDocumentsRequest struct {
	Period string           `json:"period" binding:"required"`
	Items  []map[string]any `json:"items" binding:"required"`
}

// SyncDocumentsRequest names the period to pull from the remote authority
type SyncDocumentsRequest struct {
	Period string `json:"period" binding:"required"`
}

// DeleteDocumentsRequest deletes either explicit documents or a whole period
type DeleteDocumentsRequest struct {
	Period string      `json:"period"`
	IDs    []uuid.UUID `json:"ids"`
}

// DeleteDocumentsResponse reports how many documents were removed
type DeleteDocumentsResponse struct {
	Deleted int64 `json:"deleted"`
}

// ListDocumentsRequest represents document listing query parameters
type ListDocumentsRequest struct {
	Period        string `form:"period"`
	SupplierTaxID string `form:"supplier_tax_id"`
	DocumentType  string `form:"document_type"`
	State         string `form:"state"`
	IssuedFrom    string `form:"issued_from"`
	IssuedTo      string `form:"issued_to"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

func (r ListDocumentsRequest) toQuery() document.Query {
	return document.Query{
		Period:        r.Period,
		SupplierTaxID: r.SupplierTaxID,
		DocumentType:  r.DocumentType,
		State:         document.State(r.State),
		IssuedFrom:    r.IssuedFrom,
		IssuedTo:      r.IssuedTo,
		Page:          r.Page,
		PageSize:      r.PageSize,
	}
}
