package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

// Layout describes where one variant of the sale-ticket report keeps its
// fields. Column indexes are zero based. Detect reports whether the ticket
// occupying rows [header, end) is printed in this layout; a nil Detect always
// matches.
type Layout struct {
	Name string

	MetadataRows       int
	GrossProfitColumns []int
	TotalColumns       []int

	QtyColumn          int
	QtyFallbackColumn  int
	DescriptionColumns []int
	SellingUnitColumn  int

	GiftCardRows         int
	GiftCardAmountColumn int
	GiftCardNameColumn   int

	Detect func(g domain.Grid, header, end int) bool
}

var StandardLayout = Layout{
	Name:                 "standard",
	MetadataRows:         30,
	GrossProfitColumns:   []int{17, 18},
	TotalColumns:         []int{19, 20},
	QtyColumn:            1,
	QtyFallbackColumn:    6,
	DescriptionColumns:   []int{4, 14},
	SellingUnitColumn:    8,
	GiftCardRows:         20,
	GiftCardAmountColumn: 11,
	GiftCardNameColumn:   14,
}

// OnlineLayout is used for web orders rung up under the JSHARPE account.
// Their summary block is often shifted one column to the right, which the
// standard fallback columns already cover; column 17 and 19 still win when
// they hold a value.
var OnlineLayout = func() Layout {
	l := StandardLayout
	l.Name = "online"
	l.GrossProfitColumns = []int{17, 18}
	l.TotalColumns = []int{19, 20}
	l.Detect = func(g domain.Grid, header, end int) bool {
		return StandardLayout.repToken(g, ticketSpan{header: header, end: end}) == "JSHARPE"
	}
	return l
}()

// DefaultLayouts is evaluated in order; the first layout whose Detect matches
// parses the ticket.
var DefaultLayouts = []Layout{OnlineLayout, StandardLayout}

type ticketSpan struct {
	header       int
	end          int
	ticketNumber string
	storeID      string
}

func selectLayout(layouts []Layout, g domain.Grid, span ticketSpan) Layout {
	for _, l := range layouts {
		if l.Detect == nil || l.Detect(g, span.header, span.end) {
			return l
		}
	}
	return StandardLayout
}

func (l Layout) parse(g domain.Grid, span ticketSpan, names *nameResolver) (domain.ParsedTicket, error) {
	ticket := domain.ParsedTicket{
		TicketNumber: span.ticketNumber,
		StoreID:      span.storeID,
		Layout:       l.Name,
		Items:        []domain.ParsedItem{},
		GiftCards:    []domain.ParsedGiftCard{},
	}

	dateFound, totalFound := false, false
	for r := span.header + 1; r < l.windowEnd(span); r++ {
		first := strings.TrimSpace(g.Cell(r, 0))
		if !dateFound {
			if date, ok := parseSaleDate(first); ok {
				ticket.SaleDate = date
				ticket.GrossProfitPercent = l.grossProfit(g, r)
				dateFound = true
				continue
			}
		}
		if !totalFound {
			upper := strings.ToUpper(first)
			if strings.Contains(upper, "SALE") && strings.Contains(upper, "TICKET") {
				ticket.TransactionTotal = l.total(g, r)
				totalFound = true
			}
		}
	}
	if !dateFound {
		return ticket, fmt.Errorf("no sale date within %d rows of header", l.MetadataRows)
	}
	if rep := l.repToken(g, span); rep != "" {
		ticket.SalesRep = normalizeRep(rep)
	}

	giftRows := l.parseGiftCards(g, span, &ticket)
	l.parseItems(g, span, giftRows, names, &ticket)
	return ticket, nil
}

func (l Layout) windowEnd(span ticketSpan) int {
	return min(span.header+1+l.MetadataRows, span.end)
}

func (l Layout) grossProfit(g domain.Grid, row int) *float64 {
	for _, col := range l.GrossProfitColumns {
		if v, ok := parsePercent(g.Cell(row, col)); ok {
			return &v
		}
	}
	return nil
}

func (l Layout) total(g domain.Grid, row int) decimal.NullDecimal {
	for _, col := range l.TotalColumns {
		if v, ok := parseMoney(g.Cell(row, col)); ok {
			return decimal.NewNullDecimal(v)
		}
	}
	return decimal.NullDecimal{}
}

// repToken returns the first upper-case word in the metadata window that can
// be a rep login. Rows carrying a sold quantity are line items and skipped.
func (l Layout) repToken(g domain.Grid, span ticketSpan) string {
	for r := span.header + 1; r < l.windowEnd(span); r++ {
		if l.isLineItem(g, r) {
			continue
		}
		for c := 0; c < len(g[r]); c++ {
			for _, token := range strings.Fields(g[r][c]) {
				if repPattern.MatchString(token) && !reservedRepTokens[token] {
					return token
				}
			}
		}
	}
	return ""
}

func (l Layout) isLineItem(g domain.Grid, row int) bool {
	return itemPattern.MatchString(strings.TrimSpace(g.Cell(row, 0))) && l.qty(g, row) != 0
}

func (l Layout) qty(g domain.Grid, row int) int {
	if qty := parseQty(g.Cell(row, l.QtyColumn)); qty != 0 {
		return qty
	}
	return parseQty(g.Cell(row, l.QtyFallbackColumn))
}

// parseGiftCards reads the first "Gift Card #" block of the ticket and returns
// the rows it consumed so they are not mistaken for line items.
func (l Layout) parseGiftCards(g domain.Grid, span ticketSpan, ticket *domain.ParsedTicket) map[int]bool {
	consumed := map[int]bool{}

	section := -1
	for r := span.header + 1; r < span.end; r++ {
		joined := strings.ToLower(g.Cell(r, 0) + " " + g.Cell(r, 1))
		if strings.Contains(joined, "gift card #") {
			section = r
			break
		}
	}
	if section < 0 {
		return consumed
	}
	consumed[section] = true

	last := min(section+1+l.GiftCardRows, span.end)
	for r := section + 1; r < last; r++ {
		first := strings.TrimSpace(g.Cell(r, 0))
		if strings.HasPrefix(strings.ToLower(first), "item #") {
			break
		}
		if !giftCardNumber.MatchString(first) {
			continue
		}
		consumed[r] = true

		amount, ok := parseMoney(g.Cell(r, l.GiftCardAmountColumn))
		if !ok || !amount.IsPositive() {
			continue
		}
		name := strings.TrimSpace(g.Cell(r, l.GiftCardNameColumn))
		if name == "" {
			name = "Gift Card"
		}
		ticket.GiftCards = append(ticket.GiftCards, domain.ParsedGiftCard{Amount: amount, ProductName: name})
	}
	return consumed
}

func (l Layout) parseItems(g domain.Grid, span ticketSpan, skip map[int]bool, names *nameResolver, ticket *domain.ParsedTicket) {
	for r := span.header + 1; r < span.end; r++ {
		if skip[r] {
			continue
		}
		itemNumber := itemPattern.FindString(strings.TrimSpace(g.Cell(r, 0)))
		if itemNumber == "" {
			continue
		}
		qty := l.qty(g, r)
		if qty == 0 {
			continue
		}

		descriptions := make([]string, 0, len(l.DescriptionColumns))
		for _, col := range l.DescriptionColumns {
			descriptions = append(descriptions, g.Cell(r, col))
		}
		ticket.Items = append(ticket.Items, domain.ParsedItem{
			ItemNumber:  itemNumber,
			ProductName: names.resolve(itemNumber, descriptions...),
			QtySold:     qty,
			SellingUnit: strings.TrimSpace(g.Cell(r, l.SellingUnitColumn)),
		})
	}
}
