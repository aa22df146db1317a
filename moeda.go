package pgdasd

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseValor converts a Brazilian-formatted monetary string ("1.234,56") to a
// decimal. Every character that is not a digit, comma, period or minus sign is
// stripped; periods are treated as thousands separators and removed; the last
// comma becomes the decimal point. Unparseable input yields zero, never an
// error.
func ParseValor(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	limpo := strings.ReplaceAll(b.String(), ".", "")
	if idx := strings.LastIndex(limpo, ","); idx >= 0 {
		limpo = strings.ReplaceAll(limpo[:idx], ",", "") + "." + limpo[idx+1:]
	}
	if limpo == "" || limpo == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(limpo)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePercentual accepts an already-numeric value or a "xx,xxxx%" string and
// returns the percentage as a decimal, zero when unparseable.
func ParsePercentual(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return val
	case float64:
		return decimal.NewFromFloat(val)
	case float32:
		return decimal.NewFromFloat(float64(val))
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case string:
		return ParseValor(strings.TrimSuffix(strings.TrimSpace(val), "%"))
	default:
		return decimal.Zero
	}
}

// FormatarMoeda renders a decimal as Brazilian currency text: period as the
// thousands separator, comma as the decimal separator, two decimal places.
func FormatarMoeda(d decimal.Decimal) string {
	return formatarBR(d, 2, true)
}

// FormatarPercentual renders a decimal percentage with the given number of
// decimal places, comma as the decimal separator.
func FormatarPercentual(d decimal.Decimal, casas int) string {
	return formatarBR(d, casas, true)
}

// FormatarNumero renders a decimal with the given number of decimal places
// and no thousands separator, comma as the decimal separator. Used for the
// 4-decimal foreign-market series values.
func FormatarNumero(d decimal.Decimal, casas int) string {
	return formatarBR(d, casas, false)
}

func formatarBR(d decimal.Decimal, casas int, milhar bool) string {
	s := d.StringFixed(int32(casas))

	negativo := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	inteiro, fracao, achou := strings.Cut(s, ".")
	if milhar {
		inteiro = separarMilhares(inteiro)
	}

	var b strings.Builder
	if negativo {
		b.WriteByte('-')
	}
	b.WriteString(inteiro)
	if achou {
		b.WriteByte(',')
		b.WriteString(fracao)
	}
	return b.String()
}

func separarMilhares(inteiro string) string {
	if len(inteiro) <= 3 {
		return inteiro
	}
	var b strings.Builder
	resto := len(inteiro) % 3
	if resto > 0 {
		b.WriteString(inteiro[:resto])
	}
	for i := resto; i < len(inteiro); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(inteiro[i : i+3])
	}
	return b.String()
}
