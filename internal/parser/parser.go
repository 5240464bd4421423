// Package parser recovers sale tickets from the point-of-sale "sale ticket"
// export: a multi-row, merged-cell report where each ticket starts with a
// ticket-number row followed by metadata, line items and an optional
// gift-card block.
package parser

import (
	"fmt"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

type Options struct {
	Catalog Catalog
	// Cache carries names resolved by earlier chunks of the same import.
	Cache NameCache
	// Layouts overrides DefaultLayouts.
	Layouts []Layout
}

type Result struct {
	Tickets []domain.ParsedTicket
	Errors  []string
	// Cache is the name cache after this parse; hand it to the next chunk.
	Cache NameCache
}

type ParseError struct {
	Row          int
	TicketNumber string
	Err          error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d ticket %s: %v", e.Row, e.TicketNumber, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse scans g for tickets. A ticket that fails to parse is reported in
// Result.Errors and scanning resumes at the next ticket. opts.Cache is not
// modified.
func Parse(g domain.Grid, opts Options) Result {
	layouts := opts.Layouts
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	names := &nameResolver{catalog: opts.Catalog, cache: opts.Cache.Clone()}

	res := Result{
		Tickets: []domain.ParsedTicket{},
		Errors:  []string{},
	}
	for _, span := range findSpans(g) {
		layout := selectLayout(layouts, g, span)
		ticket, err := layout.parse(g, span, names)
		if err != nil {
			res.Errors = append(res.Errors, (&ParseError{
				Row:          span.header + 1,
				TicketNumber: span.ticketNumber,
				Err:          err,
			}).Error())
			continue
		}
		res.Tickets = append(res.Tickets, ticket)
	}
	res.Cache = names.cache
	return res
}

// ParseChunks parses chunks in order, threading the name cache from each
// chunk into the next.
func ParseChunks(chunks []domain.Grid, opts Options) Result {
	total := Result{
		Tickets: []domain.ParsedTicket{},
		Errors:  []string{},
		Cache:   opts.Cache.Clone(),
	}
	for i, chunk := range chunks {
		opts.Cache = total.Cache
		res := Parse(chunk, opts)
		total.Tickets = append(total.Tickets, res.Tickets...)
		for _, msg := range res.Errors {
			total.Errors = append(total.Errors, fmt.Sprintf("chunk %d: %s", i+1, msg))
		}
		total.Cache = res.Cache
	}
	return total
}

// SplitAtTickets cuts g into chunks of roughly maxRows rows. Cuts only happen
// on ticket header rows, so a ticket is never split; a single ticket longer
// than maxRows gets a chunk of its own.
func SplitAtTickets(g domain.Grid, maxRows int) []domain.Grid {
	spans := findSpans(g)
	if maxRows < 1 || len(g) <= maxRows || len(spans) < 2 {
		return []domain.Grid{g}
	}

	chunks := make([]domain.Grid, 0, len(g)/maxRows+1)
	start := 0
	for i, span := range spans {
		if i > 0 && span.header > start && span.end-start > maxRows {
			chunks = append(chunks, g[start:span.header])
			start = span.header
		}
	}
	return append(chunks, g[start:])
}

// IsTicketHeader reports whether row opens a ticket.
func IsTicketHeader(row []string) bool {
	_, _, ok := matchTicketHeader(row)
	return ok
}

func findSpans(g domain.Grid) []ticketSpan {
	spans := make([]ticketSpan, 0, 64)
	for r, row := range g {
		number, storeID, ok := matchTicketHeader(row)
		if !ok {
			continue
		}
		if n := len(spans); n > 0 {
			spans[n-1].end = r
		}
		spans = append(spans, ticketSpan{header: r, end: len(g), ticketNumber: number, storeID: storeID})
	}
	return spans
}
