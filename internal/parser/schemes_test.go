package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTicketNumber(t *testing.T) {
	cases := map[string]string{
		"AB-SA-T051707":  "AB-SA",
		"ABHP01234-01":   "AB-HP",
		"SA-T051707":     "AB-SA",
		"ABKC-T000123":   "AB-KC",
		"ABKCT000123":    "AB-KC",
		"AB-DT-01234-02": "AB-DT",
		"ab-sa-t051707":  "AB-SA",
	}
	for number, want := range cases {
		_, got, ok := matchTicketNumber(number)
		assert.True(t, ok, number)
		assert.Equal(t, want, got, number)
	}

	for _, number := range []string{"", "CRE-500", "AB-SA-T12", "1/15/24", "AB-SA-T051707X"} {
		_, _, ok := matchTicketNumber(number)
		assert.False(t, ok, number)
	}
}

func TestMatchTicketHeaderJoinsFirstTwoColumns(t *testing.T) {
	number, store, ok := matchTicketHeader([]string{"AB-SA-", "T051707"})
	assert.True(t, ok)
	assert.Equal(t, "AB-SA-T051707", number)
	assert.Equal(t, "AB-SA", store)

	number, _, ok = matchTicketHeader([]string{" AB-SA-T051707 ", "Walk-in"})
	assert.True(t, ok)
	assert.Equal(t, "AB-SA-T051707", number)

	number, store, ok = matchTicketHeader([]string{"abhp01234-01"})
	assert.True(t, ok)
	assert.Equal(t, "ABHP01234-01", number)
	assert.Equal(t, "AB-HP", store)

	_, _, ok = matchTicketHeader([]string{"", ""})
	assert.False(t, ok)
}
