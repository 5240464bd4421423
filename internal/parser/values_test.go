package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSaleDatePivot(t *testing.T) {
	d, ok := parseSaleDate("1/15/24 10:42 AM")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	d, ok = parseSaleDate("12/31/49")
	assert.True(t, ok)
	assert.Equal(t, 2049, d.Year())

	d, ok = parseSaleDate("12/31/50")
	assert.True(t, ok)
	assert.Equal(t, 1950, d.Year())

	d, ok = parseSaleDate("7/4/2023")
	assert.True(t, ok)
	assert.Equal(t, 2023, d.Year())

	for _, raw := range []string{"", "2024-01-15", "13/1/24", "2/30/24", "Sale Ticket"} {
		_, ok := parseSaleDate(raw)
		assert.False(t, ok, raw)
	}
}

func TestParsePercent(t *testing.T) {
	v, ok := parsePercent("35.26%")
	assert.True(t, ok)
	assert.Equal(t, 35.3, v)

	v, ok = parsePercent("-4 %")
	assert.True(t, ok)
	assert.Equal(t, -4.0, v)

	_, ok = parsePercent("35.2")
	assert.False(t, ok)
}

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"$1,234.50": "1234.5",
		"150.00":    "150",
		"(30.00)":   "-30",
		"-30.00":    "-30",
	}
	for raw, want := range cases {
		v, ok := parseMoney(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, v.String(), raw)
	}
	_, ok := parseMoney("Total")
	assert.False(t, ok)
	_, ok = parseMoney("")
	assert.False(t, ok)
}

func TestParseQty(t *testing.T) {
	assert.Equal(t, 2, parseQty("2"))
	assert.Equal(t, -1, parseQty("-1"))
	assert.Equal(t, -3, parseQty("(3)"))
	assert.Equal(t, -2, parseQty("2-"))
	assert.Equal(t, 1200, parseQty("1,200.00"))
	assert.Equal(t, 0, parseQty("QTY"))
	assert.Equal(t, 0, parseQty(""))
}
