package utils

import (
	"testing"
	"time"
)

func TestParseCurrency_AcceptsBrazilianFormats(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"1.234,56", "1234.56"},
		{"R$ 1.234,56", "1234.56"},
		{"R$2.500", "2500"},
		{"  R$ 25.500,00  ", "25500"},
		{"980,5", "980.5"},
		{"0", "0"},
	}
	for _, tc := range cases {
		d := ParseCurrency(tc.in)
		if d.String() != tc.expected {
			t.Fatalf("ParseCurrency(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseCurrency_MalformedInputIsZero(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "R$"} {
		if d := ParseCurrency(in); !d.IsZero() {
			t.Fatalf("ParseCurrency(%q) expected zero, got %s", in, d.String())
		}
	}
}

func TestParseDate_SlashFormats(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"05/03/24", "2024-03-05"},
		{"05/03/2024", "2024-03-05"},
		{"5/3/24", "2024-03-05"},
		{"31/12/2025", "2025-12-31"},
	}
	for _, tc := range cases {
		if got := ParseDate(tc.in); got != tc.expected {
			t.Fatalf("ParseDate(%q) expected %s, got %s", tc.in, tc.expected, got)
		}
	}
}

func TestParseDate_PassthroughAndDefault(t *testing.T) {
	if got := ParseDate("2024-03-05"); got != "2024-03-05" {
		t.Fatalf("ISO input must pass through, got %s", got)
	}
	// Odd slash shapes pass through too rather than guessing.
	if got := ParseDate("03/24"); got != "03/24" {
		t.Fatalf("two-part input must pass through, got %s", got)
	}
	if got := ParseDate(""); got != time.Now().Format("2006-01-02") {
		t.Fatalf("empty input must resolve to today, got %s", got)
	}
}
