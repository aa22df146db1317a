package pgdasd

import (
	"strings"
	"testing"
)

func TestExtrairStringsPDF(t *testing.T) {
	tests := []struct {
		name     string
		conteudo string
		want     []string
	}{
		{"Single literal", "BT (Receita Bruta) Tj ET", []string{"Receita Bruta"}},
		{"Multiple literals", "(CNPJ) Tj (12.345.678/0001-95) Tj", []string{"CNPJ", "12.345.678/0001-95"}},
		{"Nested parentheses", "(valor (total)) Tj", []string{"valor (total)"}},
		{"Escaped paren", `(a\)b) Tj`, []string{`a\)b`}},
		{"No strings", "BT ET", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extrairStringsPDF(tt.conteudo)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d strings %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("string[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodificarStringPDF(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "Receita Bruta", "Receita Bruta"},
		{"Escaped parens", `a\(b\)c`, "a(b)c"},
		{"Newline escape", `linha1\nlinha2`, "linha1\nlinha2"},
		{"Octal escape", `Per\355odo`, "Período"},
		{"Windows-1252 high byte", "Per\xedodo", "Período"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodificarStringPDF(tt.in); got != tt.want {
				t.Errorf("decodificarStringPDF(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodificarHexPDF(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want string
	}{
		// "Receita" as UTF-16BE with BOM.
		{"UTF-16BE with BOM", "FEFF0052006500630065006900740061", "Receita"},
		// Same bytes without the BOM are recognized by the zero high bytes.
		{"UTF-16BE without BOM", "0052006500630065006900740061", "Receita"},
		{"Single byte", "52656365697461", "Receita"},
		{"Odd length padded", "5230", "R0"},
		{"Invalid hex", "zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodificarHexPDF(tt.hex); got != tt.want {
				t.Errorf("decodificarHexPDF(%q) = %q, want %q", tt.hex, got, tt.want)
			}
		})
	}
}

func TestExtrairTextoConteudo(t *testing.T) {
	conteudo := "BT /F1 12 Tf (Receita Bruta do PA) Tj <0052> Tj ET"
	texto := extrairTextoConteudo(conteudo)
	if !strings.Contains(texto, "Receita Bruta do PA") {
		t.Errorf("literal string missing from %q", texto)
	}
	if !strings.Contains(texto, "R") {
		t.Errorf("hex string missing from %q", texto)
	}
}
