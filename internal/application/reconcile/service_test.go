package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/erp/taxsync/internal/application/auth"
	"github.com/erp/taxsync/internal/domain/document"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/erp/taxsync/internal/infrastructure/taxauthority"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByKey(ctx context.Context, key document.NaturalKey) (*document.TaxDocument, error) {
	args := m.Called(ctx, key)
	if doc, ok := args.Get(0).(*document.TaxDocument); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) FindByTenantAndPeriod(ctx context.Context, tenantID, period string) ([]document.TaxDocument, error) {
	args := m.Called(ctx, tenantID, period)
	if docs, ok := args.Get(0).([]document.TaxDocument); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) Find(ctx context.Context, tenantID string, q document.Query) (shared.Paginated[document.TaxDocument], error) {
	args := m.Called(ctx, tenantID, q)
	return args.Get(0).(shared.Paginated[document.TaxDocument]), args.Error(1)
}

func (m *MockDocumentRepository) Insert(ctx context.Context, d *document.TaxDocument) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) Update(ctx context.Context, d *document.TaxDocument) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) DeleteByPeriod(ctx context.Context, tenantID, period string) (int64, error) {
	args := m.Called(ctx, tenantID, period)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) DeleteByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) Stats(ctx context.Context, tenantID string) (*document.Stats, error) {
	args := m.Called(ctx, tenantID)
	if stats, ok := args.Get(0).(*document.Stats); ok {
		return stats, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) IntegrityCounts(ctx context.Context, tenantID, period string) (*document.IntegrityCounts, error) {
	args := m.Called(ctx, tenantID, period)
	if counts, ok := args.Get(0).(*document.IntegrityCounts); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) Periods(ctx context.Context, tenantID string) ([]string, error) {
	args := m.Called(ctx, tenantID)
	if periods, ok := args.Get(0).([]string); ok {
		return periods, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTaxAuthorityClient struct {
	mock.Mock
}

func (m *MockTaxAuthorityClient) Login(ctx context.Context, creds taxauthority.Credentials) (*taxauthority.Token, error) {
	args := m.Called(ctx, creds)
	if token, ok := args.Get(0).(*taxauthority.Token); ok {
		return token, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaxAuthorityClient) FetchDocuments(ctx context.Context, accessToken, period string) ([]map[string]any, error) {
	args := m.Called(ctx, accessToken, period)
	if items, ok := args.Get(0).([]map[string]any); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaxAuthorityClient) FetchSummary(ctx context.Context, accessToken, period string) (*taxauthority.Summary, error) {
	args := m.Called(ctx, accessToken, period)
	if summary, ok := args.Get(0).(*taxauthority.Summary); ok {
		return summary, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaxAuthorityClient) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, input auth.AuthenticateInput) (*auth.SessionDescriptor, error) {
	args := m.Called(ctx, input)
	if desc, ok := args.Get(0).(*auth.SessionDescriptor); ok {
		return desc, args.Error(1)
	}
	return nil, args.Error(1)
}

type serviceFixture struct {
	service *Service
	docs    *MockDocumentRepository
	remote  *MockTaxAuthorityClient
	auth    *MockAuthenticator
}

func newServiceFixture() *serviceFixture {
	docs := new(MockDocumentRepository)
	remote := new(MockTaxAuthorityClient)
	authenticator := new(MockAuthenticator)
	logger := zap.NewNop()
	return &serviceFixture{
		service: NewService(docs, remote, authenticator, NewCanonicalizer(logger), logger),
		docs:    docs,
		remote:  remote,
		auth:    authenticator,
	}
}

func rawItem(series, number, total string) map[string]any {
	return map[string]any{
		"periodo":        "202401",
		"ruc_proveedor":  "20555555551",
		"razon_social":   "Proveedor SAC",
		"tipo_documento": "01",
		"serie":          series,
		"numero":         number,
		"fecha_emision":  "2024-01-15",
		"total":          total,
	}
}

func TestUpsert_InsertsNewDocuments(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("FindByKey", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.docs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.Upsert(context.Background(), "20123456789", "202401", []map[string]any{
		rawItem("F001", "1", "100.00"),
		rawItem("F001", "2", "200.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Inserted)
	assert.Empty(t, result.Errors)
	f.docs.AssertNumberOfCalls(t, "Insert", 2)
}

func TestUpsert_IdenticalContentIsDuplicate(t *testing.T) {
	f := newServiceFixture()
	raw := rawItem("F001", "1", "100.00")
	existing, err := NewCanonicalizer(zap.NewNop()).Canonicalize("20123456789", "", raw)
	require.NoError(t, err)

	f.docs.On("FindByKey", mock.Anything, existing.Key()).Return(existing, nil)

	result, err := f.service.Upsert(context.Background(), "20123456789", "202401", []map[string]any{raw})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Duplicates)
	assert.Zero(t, result.Inserted)
	assert.Zero(t, result.Updated)
	f.docs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.docs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpsert_ChangedContentIsUpdated(t *testing.T) {
	f := newServiceFixture()
	existing, err := NewCanonicalizer(zap.NewNop()).Canonicalize("20123456789", "", rawItem("F001", "1", "100.00"))
	require.NoError(t, err)

	f.docs.On("FindByKey", mock.Anything, existing.Key()).Return(existing, nil)
	f.docs.On("Update", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.Upsert(context.Background(), "20123456789", "202401", []map[string]any{
		rawItem("F001", "1", "250.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	f.docs.AssertCalled(t, "Update", mock.Anything, mock.MatchedBy(func(d *document.TaxDocument) bool {
		return d.Total.String() == "250"
	}))
}

func TestUpsert_BadItemDoesNotAbortBatch(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("FindByKey", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.docs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	bad := rawItem("F001", "2", "100.00")
	bad["total"] = "not a number"

	result, err := f.service.Upsert(context.Background(), "20123456789", "202401", []map[string]any{
		rawItem("F001", "1", "100.00"),
		bad,
		rawItem("F001", "3", "300.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "CONVERSION_ERROR", result.Errors[0].Code)
}

func TestUpsert_RejectsDigitlessTenantID(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Upsert(context.Background(), "---", "202401", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestUpsert_RejectsMalformedPeriod(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Upsert(context.Background(), "20123456789", "2024", []map[string]any{
		rawItem("F001", "1", "100.00"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
	f.docs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestUpsert_RequestPeriodAppliedToItems(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("FindByKey", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.docs.On("Insert", mock.Anything, mock.MatchedBy(func(d *document.TaxDocument) bool {
		return d.Period == "202403"
	})).Return(nil)

	item := rawItem("F001", "1", "100.00")
	delete(item, "periodo")

	result, err := f.service.Upsert(context.Background(), "20123456789", "2024-03", []map[string]any{item})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	f.docs.AssertExpectations(t)
}

func TestDiff_ReportsBothSides(t *testing.T) {
	f := newServiceFixture()
	canon := NewCanonicalizer(zap.NewNop())
	docA, err := canon.Canonicalize("20123456789", "", rawItem("F001", "1", "100.00"))
	require.NoError(t, err)
	docB, err := canon.Canonicalize("20123456789", "", rawItem("F001", "2", "200.00"))
	require.NoError(t, err)

	f.docs.On("FindByTenantAndPeriod", mock.Anything, "20123456789", "202401").
		Return([]document.TaxDocument{*docA, *docB}, nil)

	result, err := f.service.Diff(context.Background(), "20123456789", "2024-01", []map[string]any{
		rawItem("F001", "2", "200.00"),
		rawItem("F001", "3", "300.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, "202401", result.Period)
	assert.Equal(t, 2, result.LocalTotal)
	assert.Equal(t, 2, result.RemoteTotal)
	assert.Equal(t, 1, result.Common)
	assert.Equal(t, []string{docA.Key().String()}, result.LocalOnly)
	require.Len(t, result.RemoteOnly, 1)
	assert.False(t, result.InSync)
}

func TestDiff_InSyncWhenKeysMatch(t *testing.T) {
	f := newServiceFixture()
	canon := NewCanonicalizer(zap.NewNop())
	docA, err := canon.Canonicalize("20123456789", "", rawItem("F001", "1", "100.00"))
	require.NoError(t, err)

	f.docs.On("FindByTenantAndPeriod", mock.Anything, "20123456789", "202401").
		Return([]document.TaxDocument{*docA}, nil)

	result, err := f.service.Diff(context.Background(), "20123456789", "202401", []map[string]any{
		rawItem("F001", "1", "100.00"),
	})

	require.NoError(t, err)
	assert.True(t, result.InSync)
	assert.Empty(t, result.LocalOnly)
	assert.Empty(t, result.RemoteOnly)
}

func TestDiff_RejectsMalformedPeriod(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Diff(context.Background(), "20123456789", "2024", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestSync_SavesOnlyRemoteMissingDocuments(t *testing.T) {
	f := newServiceFixture()
	canon := NewCanonicalizer(zap.NewNop())
	known, err := canon.Canonicalize("20123456789", "", rawItem("F001", "1", "100.00"))
	require.NoError(t, err)

	f.auth.On("Authenticate", mock.Anything, auth.AuthenticateInput{TenantID: "20123456789"}).
		Return(&auth.SessionDescriptor{TenantID: "20123456789", Token: "token-1", ExpiresAt: time.Now().Add(time.Hour)}, nil)
	f.remote.On("FetchDocuments", mock.Anything, "token-1", "202401").
		Return([]map[string]any{
			rawItem("F001", "1", "100.00"),
			rawItem("F001", "2", "200.00"),
		}, nil)
	f.docs.On("FindByTenantAndPeriod", mock.Anything, "20123456789", "202401").
		Return([]document.TaxDocument{*known}, nil)
	f.docs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.Sync(context.Background(), "20123456789", "202401")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Saved.Inserted)
	assert.Equal(t, 1, result.Diff.Common)
	assert.Empty(t, result.Diff.LocalOnly)
	f.docs.AssertNumberOfCalls(t, "Insert", 1)
}

func TestSync_AuthenticationFailureFailsTheCall(t *testing.T) {
	f := newServiceFixture()
	f.auth.On("Authenticate", mock.Anything, mock.Anything).Return(nil, taxauthority.ErrAuthRejected)

	_, err := f.service.Sync(context.Background(), "20123456789", "202401")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_REJECTED")
	f.remote.AssertNotCalled(t, "FetchDocuments", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_RemoteFetchFailureFailsTheCall(t *testing.T) {
	f := newServiceFixture()
	f.auth.On("Authenticate", mock.Anything, mock.Anything).
		Return(&auth.SessionDescriptor{Token: "token-1"}, nil)
	f.remote.On("FetchDocuments", mock.Anything, "token-1", "202401").
		Return(nil, taxauthority.ErrTimeout)

	_, err := f.service.Sync(context.Background(), "20123456789", "202401")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEOUT")
	f.docs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestHealthCheck_CleanDataAndMatchingRemoteIsHealthy(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("IntegrityCounts", mock.Anything, "20123456789", "202401").
		Return(&document.IntegrityCounts{Total: 10}, nil)
	f.auth.On("Authenticate", mock.Anything, mock.Anything).
		Return(&auth.SessionDescriptor{Token: "token-1"}, nil)
	f.remote.On("FetchSummary", mock.Anything, "token-1", "202401").
		Return(&taxauthority.Summary{TotalDocuments: 10}, nil)

	report, err := f.service.HealthCheck(context.Background(), "20123456789", "202401")

	require.NoError(t, err)
	assert.Equal(t, HealthStatusHealthy, report.Status)
	assert.Equal(t, RemoteStatusMatched, report.RemoteStatus)
	require.NotNil(t, report.RemoteDocuments)
	assert.Equal(t, int64(10), *report.RemoteDocuments)
}

func TestHealthCheck_IntegrityIssuesDegrade(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("IntegrityCounts", mock.Anything, "20123456789", "202401").
		Return(&document.IntegrityCounts{Total: 10, MissingIssueDate: 2}, nil)
	f.auth.On("Authenticate", mock.Anything, mock.Anything).
		Return(&auth.SessionDescriptor{Token: "token-1"}, nil)
	f.remote.On("FetchSummary", mock.Anything, "token-1", "202401").
		Return(&taxauthority.Summary{TotalDocuments: 10}, nil)

	report, err := f.service.HealthCheck(context.Background(), "20123456789", "202401")

	require.NoError(t, err)
	assert.Equal(t, HealthStatusDegraded, report.Status)
	assert.Equal(t, int64(2), report.MissingIssueDate)
}

func TestHealthCheck_CountMismatchDegrades(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("IntegrityCounts", mock.Anything, "20123456789", "202401").
		Return(&document.IntegrityCounts{Total: 8}, nil)
	f.auth.On("Authenticate", mock.Anything, mock.Anything).
		Return(&auth.SessionDescriptor{Token: "token-1"}, nil)
	f.remote.On("FetchSummary", mock.Anything, "token-1", "202401").
		Return(&taxauthority.Summary{TotalDocuments: 10}, nil)

	report, err := f.service.HealthCheck(context.Background(), "20123456789", "202401")

	require.NoError(t, err)
	assert.Equal(t, HealthStatusDegraded, report.Status)
	assert.Equal(t, RemoteStatusMismatched, report.RemoteStatus)
}

func TestHealthCheck_RemoteFailureDegradesComparisonOnly(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("IntegrityCounts", mock.Anything, "20123456789", "202401").
		Return(&document.IntegrityCounts{Total: 10}, nil)
	f.auth.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, taxauthority.ErrConnectivity)

	report, err := f.service.HealthCheck(context.Background(), "20123456789", "202401")

	require.NoError(t, err)
	assert.Equal(t, HealthStatusHealthy, report.Status)
	assert.Equal(t, RemoteStatusUnavailable, report.RemoteStatus)
	assert.Nil(t, report.RemoteDocuments)
}

func TestDelete_ByIDsTakesPrecedence(t *testing.T) {
	f := newServiceFixture()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	f.docs.On("DeleteByIDs", mock.Anything, "20123456789", ids).Return(int64(2), nil)

	count, err := f.service.Delete(context.Background(), "20123456789", "", ids)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	f.docs.AssertNotCalled(t, "DeleteByPeriod", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_ByPeriod(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("DeleteByPeriod", mock.Anything, "20123456789", "202401").Return(int64(5), nil)

	count, err := f.service.Delete(context.Background(), "20123456789", "202401", nil)

	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestList_NormalizesPeriodFilter(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("Find", mock.Anything, "20123456789", document.Query{Period: "202401", Page: 1, PageSize: 20}).
		Return(shared.Paginated[document.TaxDocument]{}, nil)

	_, err := f.service.List(context.Background(), "20-12345678-9", document.Query{Period: "2024-01", Page: 1, PageSize: 20})

	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}

func TestList_UppercasesStateFilter(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("Find", mock.Anything, "20123456789", document.Query{State: document.StateValidated, Page: 1, PageSize: 20}).
		Return(shared.Paginated[document.TaxDocument]{}, nil)

	_, err := f.service.List(context.Background(), "20123456789", document.Query{State: "validated", Page: 1, PageSize: 20})

	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}

func TestList_RejectsUnknownState(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.List(context.Background(), "20123456789", document.Query{State: "PENDING"})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	f.docs.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestPeriods_NormalizesTenantID(t *testing.T) {
	f := newServiceFixture()
	f.docs.On("Periods", mock.Anything, "20123456789").
		Return([]string{"202402", "202401"}, nil)

	periods, err := f.service.Periods(context.Background(), "20-12345678-9")

	require.NoError(t, err)
	assert.Equal(t, []string{"202402", "202401"}, periods)
	f.docs.AssertExpectations(t)
}
