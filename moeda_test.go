package pgdasd

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseValor(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Simple value", "1.234,56", "1234.56"},
		{"No thousands separator", "234,56", "234.56"},
		{"Large value", "1.234.567,89", "1234567.89"},
		{"Currency prefix", "R$ 1.234,56", "1234.56"},
		{"Negative value", "-1.234,56", "-1234.56"},
		{"Integer only", "1500", "1500"},
		{"Surrounding text", "Total: 987,65 (apurado)", "987.65"},
		{"Empty string", "", "0"},
		{"Garbage", "abc", "0"},
		{"Lone minus", "-", "0"},
		{"Four decimal places", "2.247,8000", "2247.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseValor(tt.in)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseValor(%q) = %s, want %s", tt.in, got, want)
			}
		})
	}
}

func TestParsePercentual(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"Percent string", "6,7280%", "6.728"},
		{"Plain string", "4,00", "4"},
		{"Float input", 9.5, "9.5"},
		{"Int input", 12, "12"},
		{"Decimal input", decimal.RequireFromString("3.35"), "3.35"},
		{"Nil input", nil, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePercentual(tt.in)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParsePercentual(%v) = %s, want %s", tt.in, got, want)
			}
		})
	}
}

func TestFormatarMoeda(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Simple", "1234.56", "1.234,56"},
		{"Millions", "1234567.89", "1.234.567,89"},
		{"Small", "12.3", "12,30"},
		{"Zero", "0", "0,00"},
		{"Negative", "-1234.56", "-1.234,56"},
		{"Exact thousand", "1000", "1.000,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatarMoeda(decimal.RequireFromString(tt.in))
			if got != tt.want {
				t.Errorf("FormatarMoeda(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Normalization must be idempotent: formatting, reparsing and formatting
// again yields the same text for every two-decimal currency value.
func TestFormatarMoedaIdempotente(t *testing.T) {
	valores := []string{"0", "0.01", "12.34", "999.99", "1000", "1234.56", "987654.32", "4800000"}
	for _, v := range valores {
		x := decimal.RequireFromString(v)
		primeira := FormatarMoeda(x)
		segunda := FormatarMoeda(ParseValor(primeira))
		if primeira != segunda {
			t.Errorf("round trip for %s: %q != %q", v, primeira, segunda)
		}
	}
}

// Foreign-market series values keep four decimal places, comma-separated.
func TestFormatarNumeroQuatroCasas(t *testing.T) {
	got := FormatarNumero(decimal.RequireFromString("2247.8"), 4)
	if got != "2247,8000" {
		t.Errorf("FormatarNumero(2247.8, 4) = %q, want %q", got, "2247,8000")
	}
}

func TestFormatarPercentual(t *testing.T) {
	got := FormatarPercentual(decimal.RequireFromString("6.728"), 4)
	if got != "6,7280" {
		t.Errorf("FormatarPercentual(6.728, 4) = %q, want %q", got, "6,7280")
	}
	got = FormatarPercentual(decimal.RequireFromString("4"), 1)
	if got != "4,0" {
		t.Errorf("FormatarPercentual(4, 1) = %q, want %q", got, "4,0")
	}
}
