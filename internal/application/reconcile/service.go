package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/erp/taxsync/internal/application/auth"
	"github.com/erp/taxsync/internal/domain/company"
	"github.com/erp/taxsync/internal/domain/document"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/erp/taxsync/internal/infrastructure/taxauthority"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authenticator provides a live session token for remote calls
type Authenticator interface {
	Authenticate(ctx context.Context, input auth.AuthenticateInput) (*auth.SessionDescriptor, error)
}

var _ Authenticator = (*auth.SessionService)(nil)

// Service reconciles tax documents between the local store and the
// remote authority. Batch operations isolate failures per item: one bad
// record never aborts the rest of the batch.
type Service struct {
	docs   document.Repository
	remote taxauthority.Client
	auth   Authenticator
	canon  *Canonicalizer
	logger *zap.Logger
}

// NewService creates a new reconciliation Service
func NewService(
	docs document.Repository,
	remote taxauthority.Client,
	authenticator Authenticator,
	canon *Canonicalizer,
	logger *zap.Logger,
) *Service {
	return &Service{
		docs:   docs,
		remote: remote,
		auth:   authenticator,
		canon:  canon,
		logger: logger.Named("reconcile_service"),
	}
}

// Upsert canonicalizes and stores a batch of raw document items under one
// period. Each item is matched by natural key: unknown keys are inserted,
// known keys with an identical content hash are counted as duplicates,
// known keys with a different hash are updated in place.
func (s *Service) Upsert(ctx context.Context, rawTenantID, rawPeriod string, items []map[string]any) (*BatchResult, error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	period, err := normalizePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for i, raw := range items {
		result.Processed++

		doc, err := s.canon.Canonicalize(tenantID, period, raw)
		if err != nil {
			result.Errors = append(result.Errors, batchError(i, "", err))
			continue
		}

		outcome, err := s.upsertOne(ctx, doc)
		if err != nil {
			result.Errors = append(result.Errors, batchError(i, doc.Key().String(), err))
			continue
		}
		switch outcome {
		case outcomeInserted:
			result.Inserted++
		case outcomeUpdated:
			result.Updated++
		case outcomeDuplicate:
			result.Duplicates++
		}
	}

	s.logger.Info("Upsert batch finished",
		zap.String("tenant_id", tenantID),
		zap.String("period", period),
		zap.Int("processed", result.Processed),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

type upsertOutcome int

const (
	outcomeInserted upsertOutcome = iota
	outcomeUpdated
	outcomeDuplicate
)

func (s *Service) upsertOne(ctx context.Context, doc *document.TaxDocument) (upsertOutcome, error) {
	existing, err := s.docs.FindByKey(ctx, doc.Key())
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if err := s.docs.Insert(ctx, doc); err != nil {
			return 0, err
		}
		return outcomeInserted, nil
	case err != nil:
		return 0, err
	}

	if existing.ContentHash == doc.ContentHash {
		return outcomeDuplicate, nil
	}
	existing.ApplyUpdate(doc)
	if err := s.docs.Update(ctx, existing); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

// Diff compares the local store against a remote snapshot for one period
// without modifying anything. Items that fail canonicalization are
// skipped and logged.
func (s *Service) Diff(ctx context.Context, rawTenantID, rawPeriod string, remoteItems []map[string]any) (*DiffResult, error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	period, err := normalizePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}

	remoteKeys := make(map[string]struct{}, len(remoteItems))
	for i, raw := range remoteItems {
		doc, err := s.canon.Canonicalize(tenantID, period, raw)
		if err != nil {
			s.logger.Warn("Skipping remote item in diff", zap.Int("index", i), zap.Error(err))
			continue
		}
		remoteKeys[doc.Key().String()] = struct{}{}
	}

	local, err := s.docs.FindByTenantAndPeriod(ctx, tenantID, period)
	if err != nil {
		return nil, err
	}
	localKeys := make(map[string]struct{}, len(local))
	for _, d := range local {
		localKeys[d.Key().String()] = struct{}{}
	}

	return buildDiff(tenantID, period, localKeys, remoteKeys), nil
}

// Sync pulls the period's documents from the remote authority and stores
// the ones missing locally. Documents present on both sides are left
// untouched even when their contents differ; documents present only
// locally are reported, never deleted.
func (s *Service) Sync(ctx context.Context, rawTenantID, rawPeriod string) (*SyncResult, error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	period, err := normalizePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}

	desc, err := s.auth.Authenticate(ctx, auth.AuthenticateInput{TenantID: tenantID})
	if err != nil {
		return nil, err
	}

	remoteItems, err := s.remote.FetchDocuments(ctx, desc.Token, period)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{TenantID: tenantID, Period: period, Fetched: len(remoteItems)}

	remoteDocs := make(map[string]*document.TaxDocument, len(remoteItems))
	remoteKeys := make(map[string]struct{}, len(remoteItems))
	for i, raw := range remoteItems {
		doc, err := s.canon.Canonicalize(tenantID, period, raw)
		if err != nil {
			result.Saved.Errors = append(result.Saved.Errors, batchError(i, "", err))
			continue
		}
		key := doc.Key().String()
		remoteDocs[key] = doc
		remoteKeys[key] = struct{}{}
	}

	local, err := s.docs.FindByTenantAndPeriod(ctx, tenantID, period)
	if err != nil {
		return nil, err
	}
	localKeys := make(map[string]struct{}, len(local))
	for _, d := range local {
		localKeys[d.Key().String()] = struct{}{}
	}

	result.Diff = buildDiff(tenantID, period, localKeys, remoteKeys)

	for _, key := range result.Diff.RemoteOnly {
		doc := remoteDocs[key]
		result.Saved.Processed++
		if err := s.docs.Insert(ctx, doc); err != nil {
			result.Saved.Errors = append(result.Saved.Errors, batchError(-1, key, err))
			continue
		}
		result.Saved.Inserted++
	}

	s.logger.Info("Sync finished",
		zap.String("tenant_id", tenantID),
		zap.String("period", period),
		zap.Int("fetched", result.Fetched),
		zap.Int("saved", result.Saved.Inserted),
		zap.Int("local_only", len(result.Diff.LocalOnly)),
	)
	return result, nil
}

// HealthCheck reports local data-quality counters and, when the remote
// service can be reached, compares local and remote document counts.
// Remote failures degrade the comparison, never the call.
func (s *Service) HealthCheck(ctx context.Context, rawTenantID, rawPeriod string) (*HealthReport, error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	period, err := normalizePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}

	counts, err := s.docs.IntegrityCounts(ctx, tenantID, period)
	if err != nil {
		return nil, err
	}

	report := &HealthReport{
		TenantID:         tenantID,
		Period:           period,
		Status:           HealthStatusHealthy,
		LocalDocuments:   counts.Total,
		MissingSupplier:  counts.MissingSupplier,
		MissingIssueDate: counts.MissingIssueDate,
		NonPositiveTotal: counts.NonPositiveTotal,
		RemoteStatus:     RemoteStatusUnavailable,
	}
	if counts.MissingSupplier > 0 || counts.MissingIssueDate > 0 || counts.NonPositiveTotal > 0 {
		report.Status = HealthStatusDegraded
	}

	summary, err := s.fetchSummary(ctx, tenantID, period)
	if err != nil {
		s.logger.Warn("Remote summary unavailable",
			zap.String("tenant_id", tenantID),
			zap.String("period", period),
			zap.Error(err),
		)
		return report, nil
	}

	report.RemoteDocuments = &summary.TotalDocuments
	if summary.TotalDocuments == counts.Total {
		report.RemoteStatus = RemoteStatusMatched
	} else {
		report.RemoteStatus = RemoteStatusMismatched
		report.Status = HealthStatusDegraded
	}
	return report, nil
}

func (s *Service) fetchSummary(ctx context.Context, tenantID, period string) (*taxauthority.Summary, error) {
	desc, err := s.auth.Authenticate(ctx, auth.AuthenticateInput{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return s.remote.FetchSummary(ctx, desc.Token, period)
}

// List returns a page of stored documents matching the query
func (s *Service) List(ctx context.Context, rawTenantID string, q document.Query) (shared.Paginated[document.TaxDocument], error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return shared.Paginated[document.TaxDocument]{}, err
	}
	if q.Period != "" {
		if q.Period, err = normalizePeriod(q.Period); err != nil {
			return shared.Paginated[document.TaxDocument]{}, err
		}
	}
	if q.State != "" {
		q.State = document.State(strings.ToUpper(string(q.State)))
		if !document.KnownState(q.State) {
			return shared.Paginated[document.TaxDocument]{},
				shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown document state %q", q.State))
		}
	}
	return s.docs.Find(ctx, tenantID, q)
}

// Delete removes documents either by explicit IDs or by whole period
func (s *Service) Delete(ctx context.Context, rawTenantID, rawPeriod string, ids []uuid.UUID) (int64, error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		return s.docs.DeleteByIDs(ctx, tenantID, ids)
	}
	period, err := normalizePeriod(rawPeriod)
	if err != nil {
		return 0, err
	}
	return s.docs.DeleteByPeriod(ctx, tenantID, period)
}

// Stats returns the tenant's aggregated document statistics
func (s *Service) Stats(ctx context.Context, rawTenantID string) (*document.Stats, error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	return s.docs.Stats(ctx, tenantID)
}

// Periods returns the tenant's distinct document periods, newest first
func (s *Service) Periods(ctx context.Context, rawTenantID string) ([]string, error) {
	tenantID, err := normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	return s.docs.Periods(ctx, tenantID)
}

func buildDiff(tenantID, period string, local, remote map[string]struct{}) *DiffResult {
	diff := &DiffResult{
		TenantID:    tenantID,
		Period:      period,
		LocalTotal:  len(local),
		RemoteTotal: len(remote),
		LocalOnly:   []string{},
		RemoteOnly:  []string{},
	}
	for key := range local {
		if _, ok := remote[key]; ok {
			diff.Common++
		} else {
			diff.LocalOnly = append(diff.LocalOnly, key)
		}
	}
	for key := range remote {
		if _, ok := local[key]; !ok {
			diff.RemoteOnly = append(diff.RemoteOnly, key)
		}
	}
	sort.Strings(diff.LocalOnly)
	sort.Strings(diff.RemoteOnly)
	diff.InSync = len(diff.LocalOnly) == 0 && len(diff.RemoteOnly) == 0
	return diff
}

func batchError(index int, key string, err error) BatchError {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return BatchError{Index: index, Key: key, Code: domainErr.Code, Message: domainErr.Message}
	}
	return BatchError{Index: index, Key: key, Code: "UNKNOWN_ERROR", Message: err.Error()}
}

func normalizeTenantID(raw string) (string, error) {
	normalized, ok := company.NormalizeTaxID(raw)
	if !ok {
		return "", shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Tenant ID %q carries no digits", raw))
	}
	return normalized, nil
}

// normalizePeriod reduces a period to its digits and requires the YYYYMM shape
func normalizePeriod(raw string) (string, error) {
	period := digitsOnly(raw)
	if len(period) != 6 {
		return "", shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Period %q is not in YYYYMM format", raw))
	}
	return period, nil
}

