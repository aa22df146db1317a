// Package pgdasd extracts structured fiscal data from PGDAS-D declarations
// (Simples Nacional monthly tax returns) delivered as PDF text or as the
// structured JSON handed back by an upstream extraction service.
package pgdasd

import (
	"github.com/shopspring/decimal"
)

// Documento is the normalized record produced for one declaration.
type Documento struct {
	Success  bool     `json:"success"`
	Dados    Dados    `json:"dados"`
	Graficos Graficos `json:"graficos"`
	Debug    Debug    `json:"debug"`
	Metadata Metadata `json:"metadata"`
}

// Dados holds the fiscal content of the declaration.
type Dados struct {
	Identificacao Identificacao `json:"identificacao"`
	Receitas      Receitas      `json:"receitas"`
	Tributos      Tributos      `json:"tributos"`

	// Per-bucket tax breakdown: goods/services x domestic/foreign market.
	TributosMercadoriasInterno Tributos `json:"tributosMercadoriasInterno"`
	TributosMercadoriasExterno Tributos `json:"tributosMercadoriasExterno"`
	TributosServicosInterno    Tributos `json:"tributosServicosInterno"`
	TributosServicosExterno    Tributos `json:"tributosServicosExterno"`

	ValorTotalDebitos decimal.Decimal `json:"valorTotalDebitos"`
	Calculos          Calculos        `json:"calculos"`
	Historico         Historico       `json:"historico"`
}

// Identificacao carries the taxpayer and declaration identification fields.
type Identificacao struct {
	CNPJ             string `json:"cnpj"`
	RazaoSocial      string `json:"razaoSocial"`
	PeriodoApuracao  string `json:"periodoApuracao"`
	NumeroDeclaracao string `json:"numeroDeclaracao,omitempty"`
	DataTransmissao  string `json:"dataTransmissao,omitempty"`
}

// Receitas groups the revenue figures of the declaration.
type Receitas struct {
	// Receita Bruta do PA (gross revenue of the assessment period)
	ReceitaBrutaPA decimal.Decimal `json:"receitaBrutaPA"`

	// RBT12 (trailing twelve-month gross revenue)
	RBT12 decimal.Decimal `json:"rbt12"`

	// RBA / RBAA (gross revenue accumulated in the current / prior year)
	RBA  decimal.Decimal `json:"rba"`
	RBAA decimal.Decimal `json:"rbaa"`

	MercadoExterno ReceitasExterno `json:"mercadoExterno"`
}

// ReceitasExterno is the foreign-market slice of the revenue figures.
type ReceitasExterno struct {
	ReceitaBrutaPA decimal.Decimal `json:"receitaBrutaPA"`
	RBT12          decimal.Decimal `json:"rbt12"`
}

// Tributos holds the eight levies of the unified payment plus their total.
type Tributos struct {
	IRPJ    decimal.Decimal `json:"irpj"`
	CSLL    decimal.Decimal `json:"csll"`
	COFINS  decimal.Decimal `json:"cofins"`
	PIS     decimal.Decimal `json:"pis"`
	INSSCPP decimal.Decimal `json:"inss_cpp"`
	ICMS    decimal.Decimal `json:"icms"`
	IPI     decimal.Decimal `json:"ipi"`
	ISS     decimal.Decimal `json:"iss"`
	Total   decimal.Decimal `json:"total"`
}

// Soma returns the sum of the eight levies, ignoring the Total field.
func (t Tributos) Soma() decimal.Decimal {
	return t.IRPJ.Add(t.CSLL).Add(t.COFINS).Add(t.PIS).
		Add(t.INSSCPP).Add(t.ICMS).Add(t.IPI).Add(t.ISS)
}

// Acumular adds another set of levies into the receiver, keeping Total as
// the running sum of components.
func (t *Tributos) Acumular(o Tributos) {
	t.IRPJ = t.IRPJ.Add(o.IRPJ)
	t.CSLL = t.CSLL.Add(o.CSLL)
	t.COFINS = t.COFINS.Add(o.COFINS)
	t.PIS = t.PIS.Add(o.PIS)
	t.INSSCPP = t.INSSCPP.Add(o.INSSCPP)
	t.ICMS = t.ICMS.Add(o.ICMS)
	t.IPI = t.IPI.Add(o.IPI)
	t.ISS = t.ISS.Add(o.ISS)
	t.Total = t.Soma()
}

// Zerado reports whether every levy and the total are zero.
func (t Tributos) Zerado() bool {
	return t.Soma().IsZero() && t.Total.IsZero()
}

// Preencher defines Total as the component sum when it was not independently
// supplied with a positive value.
func (t *Tributos) Preencher() {
	if !t.Total.IsPositive() {
		t.Total = t.Soma()
	}
}

// Segmento identifies the market of an activity.
type Segmento string

const (
	SegmentoInterno Segmento = "interno"
	SegmentoExterno Segmento = "externo"
)

// Categoria identifies the kind of revenue of an activity.
type Categoria string

const (
	CategoriaMercadorias Categoria = "mercadorias"
	CategoriaServicos    Categoria = "servicos"
)

// Atividade is one declared activity line of an establishment.
type Atividade struct {
	Nome             string          `json:"nome"`
	ReceitaDeclarada decimal.Decimal `json:"receitaDeclarada"`
	Tributos         Tributos        `json:"tributos"`
	Segmento         Segmento        `json:"segmento"`
	Categoria        Categoria       `json:"categoria"`
	Parcelas         []Parcela       `json:"parcelas,omitempty"`
}

// Parcela is a named sub-breakdown of an activity (e.g. the communication
// services sub-rule) carrying its own figures and the substitution rule tag.
type Parcela struct {
	Nome            string          `json:"nome"`
	Regra           string          `json:"regra,omitempty"`
	Valor           decimal.Decimal `json:"valor"`
	AliquotaEfetiva decimal.Decimal `json:"aliquotaEfetiva"`
}

// PontoMensal is one point of a monthly revenue series.
type PontoMensal struct {
	Periodo string          `json:"periodo"` // MM/YYYY
	Valor   decimal.Decimal `json:"valor"`
}

// Historico holds the monthly revenue series per market.
type Historico struct {
	MercadoInterno []PontoMensal `json:"mercadoInterno"`
	MercadoExterno []PontoMensal `json:"mercadoExterno"`
}

// Calculos carries the derived rate analysis.
type Calculos struct {
	// Headline effective burden, rounded to one decimal place.
	AliquotaEfetiva decimal.Decimal `json:"aliquota_efetiva"`

	AnaliseAliquota AnaliseAliquota `json:"analise_aliquota"`
}

// AnaliseAliquota is the progressive-bracket analysis block.
type AnaliseAliquota struct {
	Detalhe              []DetalheAnexo   `json:"detalhe"`
	SimulacaoTodosAnexos []SimulacaoAnexo `json:"simulacao_todos_anexos"`
}

// DetalheAnexo is the bracket analysis of one annex present in the document.
type DetalheAnexo struct {
	Anexo                int             `json:"anexo"`
	FaixaOriginal        int             `json:"faixa_original"`
	FaixaAtual           int             `json:"faixa_atual"`
	RBT12Original        decimal.Decimal `json:"rbt12_original"`
	RBT12Atual           decimal.Decimal `json:"rbt12_atual"`
	AliquotaNominal      decimal.Decimal `json:"aliquota_nominal"`
	AliquotaEfetiva      decimal.Decimal `json:"aliquota_efetiva"`
	AliquotaEfetivaAtual decimal.Decimal `json:"aliquota_efetiva_atual"`
	ParcelasAjuste       []ParcelaAjuste `json:"parcelas_ajuste"`
}

// ParcelaAjuste records the substitution/retention adjustment applied for one
// activity of the annex.
type ParcelaAjuste struct {
	Atividade        string          `json:"atividade"`
	Regra            string          `json:"regra"`
	FatorEstimado    decimal.Decimal `json:"fator_estimado"`
	FatorReal        decimal.Decimal `json:"fator_real"`
	FatorAplicado    decimal.Decimal `json:"fator_aplicado"`
	AliquotaAjustada decimal.Decimal `json:"aliquota_ajustada"`
}

// SimulacaoAnexo projects the bracket formula for one annex regardless of the
// document's actual classification.
type SimulacaoAnexo struct {
	Anexo           int             `json:"anexo"`
	Faixa           int             `json:"faixa"`
	AliquotaNominal decimal.Decimal `json:"aliquota_nominal"`
	AliquotaEfetiva decimal.Decimal `json:"aliquota_efetiva"`
}

// Graficos holds chart-ready label/value arrays derived from Dados.
type Graficos struct {
	Historico GraficoHistorico `json:"historico"`
	Tributos  GraficoSimples   `json:"tributos"`
	Simulacao GraficoSimples   `json:"simulacao"`
}

// GraficoHistorico is the monthly revenue chart, with the combined series and
// the per-market series aligned on the same labels.
type GraficoHistorico struct {
	Labels         []string          `json:"labels"`
	Valores        []decimal.Decimal `json:"valores"`
	ValoresInterno []decimal.Decimal `json:"valoresInterno"`
	ValoresExterno []decimal.Decimal `json:"valoresExterno"`
}

// GraficoSimples is a flat label/value chart.
type GraficoSimples struct {
	Labels  []string          `json:"labels"`
	Valores []decimal.Decimal `json:"valores"`
}

// Debug carries diagnostic intermediate values, useful when troubleshooting
// parser misses.
type Debug struct {
	ID    string `json:"id"`
	Fonte string `json:"fonte"`

	// Fields whose extraction waterfall was fully exhausted and fell back
	// to defaults.
	CamposAusentes []string `json:"camposAusentes"`

	// Raw matched slices per field. Only retained in debug mode.
	Trechos map[string]string `json:"trechos,omitempty"`

	// Raw input text. Only retained in debug mode.
	TextoBruto string `json:"textoBruto,omitempty"`
}

// Metadata describes the processing run.
type Metadata struct {
	ProcessadoEm string `json:"processadoEm"`
	Versao       string `json:"versao"`
	Fonte        string `json:"fonte"`
}
