package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Grid is one import batch of raw spreadsheet cells. Rows may be ragged.
type Grid [][]string

// Cell returns the raw value at (row, col), or "" when the cell is missing.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

type Tenant struct {
	OrgID       string `json:"org_id"`
	FranchiseID string `json:"franchise_id"`
}

func (t Tenant) Valid() bool {
	return t.OrgID != "" && t.FranchiseID != ""
}

// Key identifies the tenant in cache keys and limiter buckets. Each part is
// length-prefixed so IDs containing the separator cannot collide.
func (t Tenant) Key() string {
	return strconv.Itoa(len(t.OrgID)) + ":" + t.OrgID + "/" + strconv.Itoa(len(t.FranchiseID)) + ":" + t.FranchiseID
}

type Actor struct {
	Subject string
	Role    string
	Tenant  Tenant
}

type ParsedItem struct {
	ItemNumber  string `json:"item_number"`
	ProductName string `json:"product_name"`
	QtySold     int    `json:"qty_sold"`
	SellingUnit string `json:"selling_unit"`
}

type ParsedGiftCard struct {
	Amount      decimal.Decimal `json:"amount"`
	ProductName string          `json:"product_name"`
}

type ParsedTicket struct {
	TicketNumber       string              `json:"ticket_number"`
	StoreID            string              `json:"store_id"`
	SaleDate           time.Time           `json:"sale_date"`
	SalesRep           string              `json:"sales_rep,omitempty"`
	TransactionTotal   decimal.NullDecimal `json:"transaction_total"`
	GrossProfitPercent *float64            `json:"gross_profit_percent,omitempty"`
	Layout             string              `json:"layout"`
	Items              []ParsedItem        `json:"items"`
	GiftCards          []ParsedGiftCard    `json:"gift_cards"`
}

type LineType string

const (
	LineSale     LineType = "sale"
	LineReturn   LineType = "return"
	LineGiftCard LineType = "gift_card"
)

func (t LineType) Valid() bool {
	switch t {
	case LineSale, LineReturn, LineGiftCard:
		return true
	default:
		return false
	}
}

// LedgerLine is one persisted row of the sale, return or gift-card ledger.
// Ticket-level fields are denormalized onto every line.
type LedgerLine struct {
	ID                 string              `json:"id"`
	Type               LineType            `json:"type"`
	Tenant             Tenant              `json:"tenant"`
	ImportID           string              `json:"import_id,omitempty"`
	TicketNumber       string              `json:"ticket_number"`
	StoreID            string              `json:"store_id"`
	SaleDate           time.Time           `json:"sale_date"`
	SalesRep           string              `json:"sales_rep,omitempty"`
	TransactionTotal   decimal.NullDecimal `json:"transaction_total"`
	GrossProfitPercent *float64            `json:"gross_profit_percent,omitempty"`
	ItemNumber         string              `json:"item_number,omitempty"`
	ProductName        string              `json:"product_name"`
	QtySold            int                 `json:"qty_sold,omitempty"`
	SellingUnit        string              `json:"selling_unit,omitempty"`
	GiftCardAmount     decimal.Decimal     `json:"giftcard_amount"`
	CreatedAt          time.Time           `json:"created_at"`
}

// Ledger is the tenant's three ledgers read back for reconciliation.
type Ledger struct {
	Sales     []LedgerLine
	Returns   []LedgerLine
	GiftCards []LedgerLine
}

func (l Ledger) Len() int {
	return len(l.Sales) + len(l.Returns) + len(l.GiftCards)
}

type LedgerFilter struct {
	From     *time.Time
	To       *time.Time
	StoreID  string
	SalesRep string
}

// Match reports whether a line falls inside the filter. To is exclusive.
func (f LedgerFilter) Match(line LedgerLine) bool {
	if f.From != nil && line.SaleDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !line.SaleDate.Before(*f.To) {
		return false
	}
	if f.StoreID != "" && line.StoreID != f.StoreID {
		return false
	}
	if f.SalesRep != "" && line.SalesRep != f.SalesRep {
		return false
	}
	return true
}

type CatalogEntry struct {
	ItemNumber  string `json:"item_number"`
	ProductName string `json:"product_name"`
}

type CanonicalTicket struct {
	TicketNumber       string          `json:"ticket_number"`
	StoreID            string          `json:"store_id"`
	SaleDate           time.Time       `json:"sale_date"`
	SalesRep           string          `json:"sales_rep,omitempty"`
	TransactionTotal   decimal.Decimal `json:"transaction_total"`
	GrossProfitPercent *float64        `json:"gross_profit_percent,omitempty"`
	IsSale             bool            `json:"is_sale"`
	IsReturn           bool            `json:"is_return"`
	IsGiftCard         bool            `json:"is_gift_card"`
}

// ReturnOnly is a ticket seen in the return ledger but never in the sale ledger.
func (t CanonicalTicket) ReturnOnly() bool {
	return t.IsReturn && !t.IsSale
}

// GiftCardOnly is a ticket seen only in the gift-card ledger.
func (t CanonicalTicket) GiftCardOnly() bool {
	return t.IsGiftCard && !t.IsSale && !t.IsReturn
}

type ImportRequest struct {
	Rows           Grid              `json:"rows"`
	NameCache      map[string]string `json:"name_cache,omitempty"`
	SkipDuplicates *bool             `json:"skip_duplicates,omitempty"`
}

type LedgerCounts struct {
	Sale     int `json:"sale"`
	Return   int `json:"return"`
	GiftCard int `json:"gift_card"`
}

func (c LedgerCounts) Total() int {
	return c.Sale + c.Return + c.GiftCard
}

func (c *LedgerCounts) Add(t LineType, n int) {
	switch t {
	case LineSale:
		c.Sale += n
	case LineReturn:
		c.Return += n
	case LineGiftCard:
		c.GiftCard += n
	}
}

type WriteResult struct {
	Inserted LedgerCounts `json:"inserted"`
	Skipped  int          `json:"skipped"`
	Failed   LedgerCounts `json:"failed"`
	Errors   []string     `json:"errors"`
}

type ImportResponse struct {
	ImportID      string            `json:"import_id"`
	TicketsParsed int               `json:"tickets_parsed"`
	ParseErrors   []string          `json:"parse_errors"`
	NameCache     map[string]string `json:"name_cache"`
	WriteResult
}

type TicketListResponse struct {
	Tickets []CanonicalTicket `json:"tickets"`
	Count   int               `json:"count"`
}

type RepLeader struct {
	SalesRep       string  `json:"sales_rep"`
	TotalSales     float64 `json:"total_sales"`
	TicketCount    int     `json:"ticket_count"`
	AvgTicketValue float64 `json:"avg_ticket_value"`
}

type StoreLeader struct {
	StoreID     string  `json:"store_id"`
	TotalSales  float64 `json:"total_sales"`
	TicketCount int     `json:"ticket_count"`
}

type ProductLeader struct {
	ItemNumber  string `json:"item_number"`
	ProductName string `json:"product_name"`
	QtySold     int    `json:"qty_sold"`
}

type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

type RepCoaching struct {
	SalesRep            string `json:"sales_rep"`
	QualifyingDays      int    `json:"qualifying_days"`
	UnderperformingDays int    `json:"underperforming_days"`
	NeedsCoaching       bool   `json:"needs_coaching"`
}

type MetricsSummary struct {
	TotalSales         float64         `json:"totalSales"`
	TicketCount        int             `json:"ticketCount"`
	AvgTicketValue     float64         `json:"avgTicketValue"`
	GrossProfitPercent float64         `json:"grossProfitPercent"`
	ItemsSold          int             `json:"itemsSold"`
	ReturnRate         float64         `json:"returnRate"`
	GiftCardUsage      float64         `json:"giftCardUsage"`
	SalesConsistency   float64         `json:"salesConsistency"`
	DailyRevenue       []DailyRevenue  `json:"dailyRevenue"`
	TopReps            []RepLeader     `json:"topReps"`
	TopStores          []StoreLeader   `json:"topStores"`
	TopProducts        []ProductLeader `json:"topProducts"`
	Coaching           []RepCoaching   `json:"coaching"`
	ComputedAt         string          `json:"computedAt"`
}

type RepPerformanceResponse struct {
	Leaders  []RepLeader   `json:"leaders"`
	Coaching []RepCoaching `json:"coaching"`
}
