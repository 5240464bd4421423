package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/store"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/xid"
)

//go:embed schema.sql
var schema string

var tables = map[domain.LineType]string{
	domain.LineSale:     "sale_lines",
	domain.LineReturn:   "return_lines",
	domain.LineGiftCard: "giftcard_lines",
}

// tableOrder fixes iteration order for statements touching every ledger.
var tableOrder = []domain.LineType{domain.LineSale, domain.LineReturn, domain.LineGiftCard}

const lineColumns = `id, org_id, franchise_id, import_id, ticket_number, store_id, sale_date, sales_rep,
	transaction_total, gross_profit_percent, item_number, product_name, qty_sold, selling_unit,
	giftcard_amount, created_at`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an already opened handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the ledger and catalog tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InsertLedgerLines issues one INSERT per line outside any transaction, so
// a rejected line leaves the others in place.
func (s *Store) InsertLedgerLines(ctx context.Context, lines []domain.LedgerLine) []error {
	errs := make([]error, len(lines))
	for i, line := range lines {
		errs[i] = s.insertLine(ctx, line)
	}
	return errs
}

func (s *Store) insertLine(ctx context.Context, line domain.LedgerLine) error {
	if err := store.ValidateLine(line); err != nil {
		return err
	}
	if line.ID == "" {
		line.ID = xid.New("ln")
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+tables[line.Type]+` (`+lineColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		line.ID, line.Tenant.OrgID, line.Tenant.FranchiseID, line.ImportID,
		line.TicketNumber, line.StoreID, line.SaleDate, line.SalesRep,
		line.TransactionTotal, nullFloat(line.GrossProfitPercent),
		line.ItemNumber, line.ProductName, line.QtySold, line.SellingUnit,
		line.GiftCardAmount, line.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: duplicate id %s", store.ErrInvalidLine, line.ID)
		}
		return err
	}
	return nil
}

func (s *Store) FindSaleTicketNumbers(ctx context.Context, tenant domain.Tenant, ticketNumbers []string) (map[string]bool, error) {
	if !tenant.Valid() {
		return nil, store.ErrMissingTenant
	}
	found := make(map[string]bool, len(ticketNumbers))
	if len(ticketNumbers) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ticket_number
		FROM sale_lines
		WHERE org_id = $1 AND franchise_id = $2 AND ticket_number = ANY($3)
	`, tenant.OrgID, tenant.FranchiseID, ticketNumbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		found[number] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return found, nil
}

func (s *Store) ListLedgerLines(ctx context.Context, tenant domain.Tenant, lineType domain.LineType, filter domain.LedgerFilter) ([]domain.LedgerLine, error) {
	if !tenant.Valid() {
		return nil, store.ErrMissingTenant
	}
	table, ok := tables[lineType]
	if !ok {
		return nil, store.ErrInvalidLine
	}

	where := []string{"org_id = $1", "franchise_id = $2"}
	args := []any{tenant.OrgID, tenant.FranchiseID}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.From != nil {
		add("sale_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("sale_date < $%d", *filter.To)
	}
	if filter.StoreID != "" {
		add("store_id = $%d", filter.StoreID)
	}
	if filter.SalesRep != "" {
		add("sales_rep = $%d", filter.SalesRep)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM `+table+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.LedgerLine, 0, 128)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		line.Type = lineType
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func scanLine(rows *sql.Rows) (domain.LedgerLine, error) {
	var (
		line   domain.LedgerLine
		total  decimal.NullDecimal
		profit sql.NullFloat64
	)
	err := rows.Scan(
		&line.ID, &line.Tenant.OrgID, &line.Tenant.FranchiseID, &line.ImportID,
		&line.TicketNumber, &line.StoreID, &line.SaleDate, &line.SalesRep,
		&total, &profit,
		&line.ItemNumber, &line.ProductName, &line.QtySold, &line.SellingUnit,
		&line.GiftCardAmount, &line.CreatedAt,
	)
	if err != nil {
		return domain.LedgerLine{}, err
	}
	line.SaleDate = line.SaleDate.UTC()
	line.TransactionTotal = total
	if profit.Valid {
		v := profit.Float64
		line.GrossProfitPercent = &v
	}
	return line, nil
}

// DeleteTenantLines removes the tenant from all three ledgers atomically.
func (s *Store) DeleteTenantLines(ctx context.Context, tenant domain.Tenant) (int, error) {
	if !tenant.Valid() {
		return 0, store.ErrMissingTenant
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	deleted := 0
	for _, lineType := range tableOrder {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM `+tables[lineType]+`
			WHERE org_id = $1 AND franchise_id = $2
		`, tenant.OrgID, tenant.FranchiseID)
		if err != nil {
			return 0, fmt.Errorf("delete %s lines: %w", lineType, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeleteDuplicateLines groups lines sharing ticket, item, quantity, gift-card
// amount and product name within one ledger, and deletes the lines of every
// import after the group's earliest one. Repeats inside one import are real
// rows and stay.
func (s *Store) DeleteDuplicateLines(ctx context.Context, tenant domain.Tenant) (int, error) {
	if !tenant.Valid() {
		return 0, store.ErrMissingTenant
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	removed := 0
	for _, lineType := range tableOrder {
		table := tables[lineType]
		res, err := tx.ExecContext(ctx, `
			DELETE FROM `+table+` t
			USING (
				SELECT id, import_id, first_value(import_id) OVER (
					PARTITION BY ticket_number, item_number, qty_sold, giftcard_amount, product_name
					ORDER BY created_at, id
				) AS first_import
				FROM `+table+`
				WHERE org_id = $1 AND franchise_id = $2
			) d
			WHERE t.id = d.id AND d.import_id IS DISTINCT FROM d.first_import
		`, tenant.OrgID, tenant.FranchiseID)
		if err != nil {
			return 0, fmt.Errorf("dedupe %s lines: %w", lineType, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		removed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_number, product_name
		FROM product_catalog
		ORDER BY item_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CatalogEntry, 0, 256)
	for rows.Next() {
		var entry domain.CatalogEntry
		if err := rows.Scan(&entry.ItemNumber, &entry.ProductName); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) UpsertCatalog(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, entry := range entries {
		key := strings.ToUpper(strings.TrimSpace(entry.ItemNumber))
		name := strings.TrimSpace(entry.ProductName)
		if key == "" || name == "" {
			return store.ErrInvalidLine
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_catalog (item_number, product_name, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (item_number)
			DO UPDATE SET product_name = EXCLUDED.product_name, updated_at = now()
		`, key, name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullFloat(val *float64) any {
	if val == nil {
		return nil
	}
	return *val
}
