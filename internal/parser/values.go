package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	datePattern    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	percentPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*%$`)
	itemPattern    = regexp.MustCompile(`^[A-Z0-9-]{4,}`)
	giftCardNumber = regexp.MustCompile(`^\d{5,}`)
	repPattern     = regexp.MustCompile(`^[A-Z]{3,15}$`)
)

var reservedRepTokens = map[string]bool{
	"TICKET": true,
	"SALE":   true,
	"ITEM":   true,
}

// parseSaleDate reads M/D/YY or M/D/YYYY, ignoring anything after the year.
// Two-digit years pivot at 50.
func parseSaleDate(raw string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// parsePercent accepts only values written with a percent sign, rounded to
// one decimal place.
func parsePercent(raw string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return math.Round(v*10) / 10, true
}

// parseMoney strips currency symbols and thousands separators. Accounting
// negatives "(30.00)" are honored.
func parseMoney(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		v = v.Neg()
	}
	return v, true
}

// parseQty returns 0 for anything that is not a number.
func parseQty(raw string) int {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0
	}
	negative := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative = true
		s = s[1 : len(s)-1]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	qty := int(math.Round(v))
	if negative {
		qty = -qty
	}
	return qty
}

func normalizeRep(token string) string {
	rep := strings.ToUpper(strings.TrimSpace(token))
	if rep == "JSHARPE" {
		return "ONLINE"
	}
	return rep
}
