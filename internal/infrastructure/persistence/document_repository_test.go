package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/taxsync/internal/domain/document"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDocumentRepository creates a GormDocumentRepository with a mocked SQL connection
func newMockDocumentRepository(t *testing.T) (*GormDocumentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormDocumentRepository(gormDB), mock, mockDB
}

func testKey() document.NaturalKey {
	return document.NaturalKey{
		TenantID:      "20123456789",
		Period:        "202401",
		SupplierTaxID: "20987654321",
		DocumentType:  "01",
		Series:        "F001",
		Number:        "123",
	}
}

func TestGormDocumentRepository_FindByKey(t *testing.T) {
	t.Run("finds document by natural key", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		key := testKey()
		rows := sqlmock.NewRows([]string{"id", "tenant_id", "period", "supplier_tax_id", "document_type", "series", "number", "total", "content_hash"}).
			AddRow(uuid.New(), key.TenantID, key.Period, key.SupplierTaxID, key.DocumentType, key.Series, key.Number, decimal.RequireFromString("118.00"), "hash")

		mock.ExpectQuery(`SELECT \* FROM "tax_documents" WHERE tenant_id = \$1 AND period = \$2 AND supplier_tax_id = \$3 AND document_type = \$4 AND series = \$5 AND number = \$6 ORDER BY .* LIMIT .*`).
			WithArgs(key.TenantID, key.Period, key.SupplierTaxID, key.DocumentType, key.Series, key.Number, 1).
			WillReturnRows(rows)

		d, err := repo.FindByKey(context.Background(), key)

		assert.NoError(t, err)
		assert.Equal(t, key, d.Key())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown key", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "tax_documents"`).
			WillReturnError(gorm.ErrRecordNotFound)

		d, err := repo.FindByKey(context.Background(), testKey())

		assert.Nil(t, d)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_Update(t *testing.T) {
	t.Run("returns not found when no row matches", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		d := &document.TaxDocument{BaseEntity: shared.NewBaseEntity()}

		mock.ExpectExec(`UPDATE "tax_documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), d)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates existing row", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		d := &document.TaxDocument{BaseEntity: shared.NewBaseEntity()}

		mock.ExpectExec(`UPDATE "tax_documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(context.Background(), d))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_DeleteByPeriod(t *testing.T) {
	repo, mock, mockDB := newMockDocumentRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`DELETE FROM "tax_documents" WHERE tenant_id = \$1 AND period = \$2`).
		WithArgs("20123456789", "202401").
		WillReturnResult(sqlmock.NewResult(0, 7))

	count, err := repo.DeleteByPeriod(context.Background(), "20123456789", "202401")

	assert.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDocumentRepository_DeleteByIDs(t *testing.T) {
	t.Run("empty id list deletes nothing without touching the database", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		count, err := repo.DeleteByIDs(context.Background(), "20123456789", nil)

		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes listed ids within tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		ids := []uuid.UUID{uuid.New(), uuid.New()}

		mock.ExpectExec(`DELETE FROM "tax_documents" WHERE tenant_id = \$1 AND id IN \(\$2,\$3\)`).
			WillReturnResult(sqlmock.NewResult(0, 2))

		count, err := repo.DeleteByIDs(context.Background(), "20123456789", ids)

		assert.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_Find_FiltersByState(t *testing.T) {
	repo, mock, mockDB := newMockDocumentRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tax_documents" WHERE tenant_id = \$1 AND period = \$2 AND state = \$3`).
		WithArgs("20123456789", "202401", string(document.StateValidated)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "period", "state"}).
		AddRow(uuid.New(), "20123456789", "202401", "VALIDATED")
	mock.ExpectQuery(`SELECT \* FROM "tax_documents" WHERE tenant_id = \$1 AND period = \$2 AND state = \$3 ORDER BY issue_date DESC, created_at DESC LIMIT .*`).
		WillReturnRows(rows)

	page, err := repo.Find(context.Background(), "20123456789", document.Query{Period: "202401", State: document.StateValidated})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, document.StateValidated, page.Items[0].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDocumentRepository_Periods(t *testing.T) {
	repo, mock, mockDB := newMockDocumentRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"period"}).
		AddRow("202402").
		AddRow("202401")

	mock.ExpectQuery(`SELECT DISTINCT "period" FROM "tax_documents" WHERE tenant_id = \$1 ORDER BY period DESC`).
		WithArgs("20123456789").
		WillReturnRows(rows)

	periods, err := repo.Periods(context.Background(), "20123456789")

	assert.NoError(t, err)
	assert.Equal(t, []string{"202402", "202401"}, periods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDocumentRepository_IntegrityCounts(t *testing.T) {
	repo, mock, mockDB := newMockDocumentRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"total", "missing_supplier", "missing_issue_date", "non_positive_total"}).
		AddRow(10, 1, 2, 3)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total,.*FROM "tax_documents" WHERE tenant_id = \$1 AND period = \$2`).
		WithArgs("20123456789", "202401").
		WillReturnRows(rows)

	counts, err := repo.IntegrityCounts(context.Background(), "20123456789", "202401")

	assert.NoError(t, err)
	assert.Equal(t, int64(10), counts.Total)
	assert.Equal(t, int64(1), counts.MissingSupplier)
	assert.Equal(t, int64(2), counts.MissingIssueDate)
	assert.Equal(t, int64(3), counts.NonPositiveTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}
