package parser

import (
	"regexp"
	"strings"
)

// ticketScheme is one known ticket-number encoding. storeID receives the
// submatches of re and must return the store the ticket was rung up at.
type ticketScheme struct {
	name    string
	re      *regexp.Regexp
	storeID func(m []string) string
}

var ticketSchemes = []ticketScheme{
	{
		// AB-SA-T051707
		name:    "dashed",
		re:      regexp.MustCompile(`^(AB-[A-Z]{2})-T\d{4,}\b`),
		storeID: func(m []string) string { return m[1] },
	},
	{
		// AB-SA-05170-01
		name:    "dashed-register",
		re:      regexp.MustCompile(`^AB-([A-Z]{2})-\d{4,}-\d{2}\b`),
		storeID: func(m []string) string { return "AB-" + m[1] },
	},
	{
		// ABHP01234-01
		name:    "register",
		re:      regexp.MustCompile(`^AB([A-Z]{2})\d{4,}-\d{2}\b`),
		storeID: func(m []string) string { return "AB-" + m[1] },
	},
	{
		// ABSA-T051707 or ABSAT051707
		name:    "compact",
		re:      regexp.MustCompile(`^AB([A-Z]{2})-?T\d{4,}\b`),
		storeID: func(m []string) string { return "AB-" + m[1] },
	},
	{
		// SA-T051707, printed without the AB prefix
		name:    "bare",
		re:      regexp.MustCompile(`^([A-Z]{2})-T\d{4,}\b`),
		storeID: func(m []string) string { return "AB-" + m[1] },
	},
}

// matchTicketNumber finds the ticket number at the start of candidate and the
// store it was rung up at.
func matchTicketNumber(candidate string) (ticketNumber string, storeID string, ok bool) {
	candidate = strings.ToUpper(strings.TrimSpace(candidate))
	for _, scheme := range ticketSchemes {
		if m := scheme.re.FindStringSubmatch(candidate); m != nil {
			return m[0], scheme.storeID(m), true
		}
	}
	return "", "", false
}

// matchTicketHeader reports whether row opens a new ticket. Columns 0 and 1
// are joined because some exports split the ticket number over two cells.
func matchTicketHeader(row []string) (ticketNumber string, storeID string, ok bool) {
	first, second := "", ""
	if len(row) > 0 {
		first = strings.TrimSpace(row[0])
	}
	if len(row) > 1 {
		second = strings.TrimSpace(row[1])
	}
	if first == "" && second == "" {
		return "", "", false
	}

	candidates := []string{strings.TrimSpace(first + " " + second)}
	if first != "" && second != "" {
		candidates = append(candidates, first+second)
	}
	for _, joined := range candidates {
		if number, store, ok := matchTicketNumber(joined); ok {
			return number, store, true
		}
	}
	return "", "", false
}
