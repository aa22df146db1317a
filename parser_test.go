package pgdasd

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const textoDeclaracao = `PGDAS-D - Extrato da Declaração
CNPJ: 12.345.678/0001-95
EMPRESA EXEMPLO LTDA
Período de Apuração (PA): 04/2024
Número da Declaração: 00000000202404001
Data de Transmissão: 10/05/2024

2.1) Receita Bruta do PA 30.000,00 2.247,80 32.247,80
Receita Bruta Acumulada nos 12 meses anteriores (RBT12) 360.000,00
Receita Bruta Acumulada no ano-calendário (RBA) 120.000,00
Receita Bruta Acumulada no ano-calendário anterior (RBAA) 300.000,00

Revenda de mercadorias, exceto para o exterior, sem substituição tributária - Anexo I 30.000,00
Exportação de mercadorias para o exterior - Anexo I 2.247,80

3.1) Débitos
IRPJ CSLL COFINS PIS/PASEP INSS/CPP ICMS IPI ISS Total
100,00 90,00 300,00 65,00 430,00 500,00 0,00 0,00 1.485,00
Valor Total dos Débitos: 1.485,00

Histórico de Receitas
01/2024 10.000,00
02/2024 10.000,00
03/2024 10.000,00
Mercado Externo
01/2024 2.247,8000
`

func TestParseTexto(t *testing.T) {
	p := NewParser()
	p.SetDebug(true)

	doc := p.Parse(textoDeclaracao)

	if !doc.Success {
		t.Fatal("success must always be true")
	}
	if doc.Metadata.Fonte != FonteTexto {
		t.Errorf("metadata.fonte = %q, want %q", doc.Metadata.Fonte, FonteTexto)
	}

	ident := doc.Dados.Identificacao
	if ident.CNPJ != "12.345.678/0001-95" {
		t.Errorf("cnpj = %q", ident.CNPJ)
	}
	if ident.RazaoSocial != "EMPRESA EXEMPLO LTDA" {
		t.Errorf("razao social = %q", ident.RazaoSocial)
	}
	if ident.PeriodoApuracao != "04/2024" {
		t.Errorf("periodo = %q", ident.PeriodoApuracao)
	}
	if ident.NumeroDeclaracao != "00000000202404001" {
		t.Errorf("numero declaracao = %q", ident.NumeroDeclaracao)
	}
	if ident.DataTransmissao != "10/05/2024" {
		t.Errorf("data transmissao = %q", ident.DataTransmissao)
	}

	rec := doc.Dados.Receitas
	if !rec.ReceitaBrutaPA.Equal(decimal.RequireFromString("32247.8")) {
		t.Errorf("receita bruta pa = %s", rec.ReceitaBrutaPA)
	}
	if !rec.MercadoExterno.ReceitaBrutaPA.Equal(decimal.RequireFromString("2247.8")) {
		t.Errorf("receita externa = %s", rec.MercadoExterno.ReceitaBrutaPA)
	}
	if !rec.RBT12.Equal(decimal.NewFromInt(360000)) {
		t.Errorf("rbt12 = %s", rec.RBT12)
	}
	if !rec.RBA.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("rba = %s", rec.RBA)
	}
	if !rec.RBAA.Equal(decimal.NewFromInt(300000)) {
		t.Errorf("rbaa = %s", rec.RBAA)
	}
	// No explicit foreign RBT12 in the document: backfilled from the foreign
	// monthly series.
	if !rec.MercadoExterno.RBT12.Equal(decimal.RequireFromString("2247.8")) {
		t.Errorf("rbt12 externo = %s", rec.MercadoExterno.RBT12)
	}

	tr := doc.Dados.Tributos
	if !tr.ICMS.Equal(decimal.NewFromInt(500)) || !tr.INSSCPP.Equal(decimal.NewFromInt(430)) {
		t.Errorf("tributos = %+v", tr)
	}
	if !tr.Total.Equal(decimal.NewFromInt(1485)) {
		t.Errorf("tributos total = %s", tr.Total)
	}
	if !doc.Dados.ValorTotalDebitos.Equal(decimal.NewFromInt(1485)) {
		t.Errorf("valor total debitos = %s", doc.Dados.ValorTotalDebitos)
	}

	if len(doc.Dados.Historico.MercadoInterno) != 3 {
		t.Fatalf("historico interno: %d points", len(doc.Dados.Historico.MercadoInterno))
	}
	if len(doc.Dados.Historico.MercadoExterno) != 1 {
		t.Fatalf("historico externo: %d points", len(doc.Dados.Historico.MercadoExterno))
	}

	detalhes := doc.Dados.Calculos.AnaliseAliquota.Detalhe
	if len(detalhes) != 1 {
		t.Fatalf("expected 1 annex detail, got %d", len(detalhes))
	}
	det := detalhes[0]
	if det.Anexo != 1 || det.FaixaOriginal != 2 {
		t.Errorf("detail anexo %d faixa %d, want anexo 1 faixa 2", det.Anexo, det.FaixaOriginal)
	}
	if !det.AliquotaEfetiva.Equal(decimal.RequireFromString("5.65")) {
		t.Errorf("aliquota efetiva = %s, want 5.65", det.AliquotaEfetiva)
	}
	if len(det.ParcelasAjuste) != 0 {
		t.Errorf("no substitution expected, got %d adjustments", len(det.ParcelasAjuste))
	}

	if !doc.Dados.Calculos.AliquotaEfetiva.Equal(decimal.RequireFromString("4.6")) {
		t.Errorf("headline rate = %s, want 4.6", doc.Dados.Calculos.AliquotaEfetiva)
	}

	if len(doc.Graficos.Historico.Labels) != 3 {
		t.Errorf("chart labels: %d", len(doc.Graficos.Historico.Labels))
	}
	if !doc.Graficos.Historico.Valores[0].Equal(decimal.RequireFromString("12247.8")) {
		t.Errorf("chart combined[0] = %s, want 12247.8", doc.Graficos.Historico.Valores[0])
	}
	if len(doc.Graficos.Simulacao.Labels) != 5 || doc.Graficos.Simulacao.Labels[4] != "Anexo V" {
		t.Errorf("simulation chart labels = %v", doc.Graficos.Simulacao.Labels)
	}

	if doc.Debug.ID == "" {
		t.Error("debug id must be set")
	}
	if doc.Debug.TextoBruto == "" {
		t.Error("raw text must be retained in debug mode")
	}
	if len(doc.Debug.CamposAusentes) != 1 || doc.Debug.CamposAusentes[0] != "rbt12_mercado_externo" {
		t.Errorf("camposAusentes = %v, want only rbt12_mercado_externo", doc.Debug.CamposAusentes)
	}
}

// Only the section-marker strategy can locate the revenue here; the labelled
// strategies must fail through to it without aborting.
func TestParseCadeiaSecao(t *testing.T) {
	texto := `Documento com layout pouco usual

2.1) Receitas do período de apuração
Valor apurado 12.345,67

3.1) Débitos apurados
`
	p := NewParser()
	p.SetDebug(true)
	doc := p.Parse(texto)

	if !doc.Dados.Receitas.ReceitaBrutaPA.Equal(decimal.RequireFromString("12345.67")) {
		t.Errorf("receita = %s, want 12345.67", doc.Dados.Receitas.ReceitaBrutaPA)
	}
	if !strings.HasPrefix(doc.Debug.Trechos["receita_bruta_pa"], "secao_2_1:") {
		t.Errorf("winning strategy = %q, want secao_2_1", doc.Debug.Trechos["receita_bruta_pa"])
	}
}

func TestParseVazio(t *testing.T) {
	doc := NewParser().Parse("")
	if !doc.Success {
		t.Fatal("success must always be true")
	}
	if len(doc.Debug.CamposAusentes) == 0 {
		t.Error("empty input must report missing fields")
	}
	if !doc.Dados.Receitas.ReceitaBrutaPA.IsZero() {
		t.Errorf("receita = %s, want 0", doc.Dados.Receitas.ReceitaBrutaPA)
	}
}

// A payload that opens like JSON but is not a declaration is legal input: it
// silently falls back to text extraction.
func TestParseJSONInvalidoCaiParaTexto(t *testing.T) {
	doc := NewParser().Parse("{isto não é uma declaração estruturada")
	if doc.Metadata.Fonte != FonteTexto {
		t.Errorf("metadata.fonte = %q, want %q", doc.Metadata.Fonte, FonteTexto)
	}
	if !doc.Success {
		t.Error("fallback must still succeed")
	}
}

func TestExtrairColunas(t *testing.T) {
	tests := []struct {
		name     string
		segmento string
		mi       string
		me       string
		total    string
	}{
		{"Empty", "sem valores", "0", "0", "0"},
		{"Single value is the total", "Receita 1.000,00", "0", "0", "1000"},
		// Two columns mean domestic and total; the foreign column is a zero,
		// not missing data.
		{"Two columns", "Receita 1.000,00 1.000,00", "1000", "0", "1000"},
		{"Two columns no repair", "Receita 10,00 5,00", "10", "0", "5"},
		{"Three columns", "Receita 100,00 200,00 300,00", "100", "200", "300"},
		// A total below a component is a parsing artifact; use the largest
		// number seen.
		{"Three columns repaired", "Receita 100,00 200,00 50,00", "100", "200", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mi, me, total := extrairColunas(tt.segmento)
			if !mi.Equal(decimal.RequireFromString(tt.mi)) ||
				!me.Equal(decimal.RequireFromString(tt.me)) ||
				!total.Equal(decimal.RequireFromString(tt.total)) {
				t.Errorf("extrairColunas(%q) = (%s, %s, %s), want (%s, %s, %s)",
					tt.segmento, mi, me, total, tt.mi, tt.me, tt.total)
			}
		})
	}
}

func TestExtrairHistorico(t *testing.T) {
	texto := `Mercado Interno
01/2024 1.000,00
02/2024 2.000,00
Mercado Externo
01/2024 500,00
`
	interno, externo := extrairHistorico(texto)
	if len(interno) != 2 || len(externo) != 1 {
		t.Fatalf("got %d domestic / %d foreign points, want 2/1", len(interno), len(externo))
	}
	if externo[0].Periodo != "01/2024" || !externo[0].Valor.Equal(decimal.NewFromInt(500)) {
		t.Errorf("foreign point = %+v", externo[0])
	}
}

func TestTributosPorRotulos(t *testing.T) {
	texto := `IRPJ 10,00
CSLL 20,00
COFINS 30,00
PIS 40,00
INSS/CPP 50,00
ICMS 60,00 40,00
IPI 0,00
ISS 0,00
`
	tr, ok := tributosPorRotulos(texto)
	if !ok {
		t.Fatal("expected per-levy extraction to succeed")
	}
	if !tr.IRPJ.Equal(decimal.NewFromInt(10)) || !tr.CSLL.Equal(decimal.NewFromInt(20)) {
		t.Errorf("tributos = %+v", tr)
	}
	// The ICMS row carries the two-column shape: the second value is the total.
	if !tr.ICMS.Equal(decimal.NewFromInt(40)) {
		t.Errorf("icms = %s, want 40", tr.ICMS)
	}
}

func TestFormatarCNPJ(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12345678000195", "12.345.678/0001-95"},
		{"12.345.678/0001-95", "12.345.678/0001-95"},
		{"123", "123"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := formatarCNPJ(tt.in); got != tt.want {
			t.Errorf("formatarCNPJ(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
