package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/store"
)

var tenant = domain.Tenant{OrgID: "org-1", FranchiseID: "fr-1"}

// arrayConverter lets []string arguments through the way the pgx driver does.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func saleLine(ticket string) domain.LedgerLine {
	return domain.LedgerLine{
		Type:             domain.LineSale,
		Tenant:           tenant,
		TicketNumber:     ticket,
		StoreID:          "AB-SA",
		SaleDate:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		SalesRep:         "JANE",
		TransactionTotal: decimal.NewNullDecimal(decimal.RequireFromString("150.00")),
		ItemNumber:       "CRE-500",
		ProductName:      "Creatine",
		QtySold:          2,
	}
}

func TestInsertLedgerLinesIsolatesFailures(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sale_lines")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO return_lines")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	ret := saleLine("AB-SA-T000001")
	ret.Type = domain.LineReturn
	ret.QtySold = -1
	noTenant := saleLine("AB-SA-T000002")
	noTenant.Tenant = domain.Tenant{}

	errs := s.InsertLedgerLines(context.Background(), []domain.LedgerLine{saleLine("AB-SA-T000001"), noTenant, ret})

	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], store.ErrMissingTenant)
	assert.ErrorIs(t, errs[2], store.ErrInvalidLine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSaleTicketNumbers(t *testing.T) {
	s, mock := newMock(t)

	numbers := []string{"AB-SA-T000001", "AB-SA-T000002"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM sale_lines")).
		WithArgs("org-1", "fr-1", numbers).
		WillReturnRows(sqlmock.NewRows([]string{"ticket_number"}).AddRow("AB-SA-T000002"))

	found, err := s.FindSaleTicketNumbers(context.Background(), tenant, numbers)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"AB-SA-T000002": true}, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSaleTicketNumbersEmptyInputSkipsQuery(t *testing.T) {
	s, mock := newMock(t)

	found, err := s.FindSaleTicketNumbers(context.Background(), tenant, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLedgerLinesAppliesFilter(t *testing.T) {
	s, mock := newMock(t)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC)

	columns := []string{"id", "org_id", "franchise_id", "import_id", "ticket_number", "store_id", "sale_date", "sales_rep",
		"transaction_total", "gross_profit_percent", "item_number", "product_name", "qty_sold", "selling_unit",
		"giftcard_amount", "created_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("ln_1", "org-1", "fr-1", "imp_1", "AB-SA-T000001", "AB-SA", from.AddDate(0, 0, 14), "JANE",
			"150.00", 35.3, "CRE-500", "Creatine", int64(2), "EA", "0", created).
		AddRow("ln_2", "org-1", "fr-1", "imp_1", "AB-SA-T000002", "AB-SA", from.AddDate(0, 0, 15), "JANE",
			nil, nil, "WPI-2LB", "Whey", int64(1), "", "0", created)

	mock.ExpectQuery(`FROM return_lines\s+WHERE org_id = \$1 AND franchise_id = \$2 AND sale_date >= \$3 AND sale_date < \$4 AND store_id = \$5`).
		WithArgs("org-1", "fr-1", from, to, "AB-SA").
		WillReturnRows(rows)

	lines, err := s.ListLedgerLines(context.Background(), tenant, domain.LineReturn, domain.LedgerFilter{From: &from, To: &to, StoreID: "AB-SA"})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, domain.LineReturn, lines[0].Type)
	assert.Equal(t, tenant, lines[0].Tenant)
	require.True(t, lines[0].TransactionTotal.Valid)
	assert.Equal(t, "150", lines[0].TransactionTotal.Decimal.String())
	require.NotNil(t, lines[0].GrossProfitPercent)
	assert.Equal(t, 35.3, *lines[0].GrossProfitPercent)

	assert.False(t, lines[1].TransactionTotal.Valid)
	assert.Nil(t, lines[1].GrossProfitPercent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLedgerLinesRequiresTenant(t *testing.T) {
	s, _ := newMock(t)

	_, err := s.ListLedgerLines(context.Background(), domain.Tenant{OrgID: "org-1"}, domain.LineSale, domain.LedgerFilter{})
	assert.ErrorIs(t, err, store.ErrMissingTenant)

	_, err = s.ListLedgerLines(context.Background(), tenant, domain.LineType("bogus"), domain.LedgerFilter{})
	assert.ErrorIs(t, err, store.ErrInvalidLine)
}

func TestDeleteTenantLinesSumsAllLedgers(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sale_lines")).WithArgs("org-1", "fr-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM return_lines")).WithArgs("org-1", "fr-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM giftcard_lines")).WithArgs("org-1", "fr-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	deleted, err := s.DeleteTenantLines(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, 7, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDuplicateLinesRollsBackOnError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sale_lines t")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM return_lines t")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := s.DeleteDuplicateLines(context.Background(), tenant)
	require.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDuplicateLinesOnlyDropsLaterImports(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	for _, table := range []string{"sale_lines", "return_lines", "giftcard_lines"} {
		mock.ExpectExec(`DELETE FROM ` + table + ` t\s+USING \(\s+SELECT id, import_id, first_value\(import_id\) OVER \(` +
			`\s+PARTITION BY ticket_number, item_number, qty_sold, giftcard_amount, product_name\s+ORDER BY created_at, id` +
			`[\s\S]*WHERE t\.id = d\.id AND d\.import_id IS DISTINCT FROM d\.first_import`).
			WithArgs("org-1", "fr-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	removed, err := s.DeleteDuplicateLines(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCatalogNormalizesKeys(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_catalog")).
		WithArgs("CRE-500", "Creatine").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpsertCatalog(context.Background(), []domain.CatalogEntry{{ItemNumber: " cre-500 ", ProductName: "Creatine "}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCatalog(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM product_catalog")).
		WillReturnRows(sqlmock.NewRows([]string{"item_number", "product_name"}).
			AddRow("CRE-500", "Creatine").
			AddRow("WPI-2LB", "Whey"))

	entries, err := s.ListCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogEntry{{ItemNumber: "CRE-500", ProductName: "Creatine"}, {ItemNumber: "WPI-2LB", ProductName: "Whey"}}, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
