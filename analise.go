package pgdasd

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// LimiteRazaoConfiavel is the threshold above which a directly computed
// substitution ratio (actual tax paid / theoretical tax at the nominal rate)
// is considered untrustworthy and replaced by the table-derived estimate.
// Upstream totals are sometimes supplied pre-aggregated without a genuine
// per-parcel breakdown; the ratio then lands near 1 (or exactly 0 with no
// data) even though the activity description says a substitution applies.
// The value is a compatibility constant, not a first-principles figure; do
// not change it without confirming against real documents.
var LimiteRazaoConfiavel = decimal.NewFromFloat(0.90)

const (
	RegraICMSSubstituicao = "icms_st"
	RegraISSRetencao      = "iss_retido"
)

// DetectarRegra inspects an activity or parcel description for substitution
// or retention keywords. Explicit negations ("sem substituição tributária",
// "sem retenção") win over the positive keywords.
func DetectarRegra(descricao string) string {
	texto := normalizarTexto(descricao)

	if strings.Contains(texto, "substituicao tributaria") &&
		!strings.Contains(texto, "sem substituicao") {
		return RegraICMSSubstituicao
	}
	if strings.Contains(texto, "retencao") &&
		!strings.Contains(texto, "sem retencao") {
		return RegraISSRetencao
	}
	return ""
}

// Analise computes the progressive-bracket rate analysis. The statute tables
// are injected at construction so the per-document and the simulated paths
// cannot drift apart.
type Analise struct {
	tabelas *Tabelas
}

// NovaAnalise builds an Analise over the given statute pack; nil selects the
// embedded default pack.
func NovaAnalise(t *Tabelas) *Analise {
	if t == nil {
		t = TabelasPadrao()
	}
	return &Analise{tabelas: t}
}

// arredondar4 rounds a percentage for the analysis rows. Only final figures
// are rounded; the formula itself runs at full precision.
func arredondar4(d decimal.Decimal) decimal.Decimal { return d.Round(4) }

// Calcular produces the per-annex detail for the annexes present among the
// document's activities, plus the unconditional all-annex simulation.
func (an *Analise) Calcular(atividades []Atividade, rbt12Original, rbt12Atual decimal.Decimal) AnaliseAliquota {
	var out AnaliseAliquota

	porAnexo := make(map[int][]Atividade)
	for _, a := range atividades {
		n := AnexoDaAtividade(a)
		porAnexo[n] = append(porAnexo[n], a)
	}
	anexos := make([]int, 0, len(porAnexo))
	for n := range porAnexo {
		anexos = append(anexos, n)
	}
	sort.Ints(anexos)

	for _, n := range anexos {
		tabela := an.tabelas.Anexo(n)
		if tabela == nil {
			continue
		}
		out.Detalhe = append(out.Detalhe, an.detalheAnexo(tabela, porAnexo[n], rbt12Original, rbt12Atual))
	}

	for _, tabela := range an.tabelas.Anexos {
		faixa := tabela.SelecionarFaixa(rbt12Original)
		out.SimulacaoTodosAnexos = append(out.SimulacaoTodosAnexos, SimulacaoAnexo{
			Anexo:           tabela.Anexo,
			Faixa:           faixa.Faixa,
			AliquotaNominal: faixa.Aliquota,
			AliquotaEfetiva: arredondar4(tabela.AliquotaEfetiva(rbt12Original)),
		})
	}

	return out
}

func (an *Analise) detalheAnexo(tabela *Anexo, atividades []Atividade, rbt12Original, rbt12Atual decimal.Decimal) DetalheAnexo {
	faixaOriginal := tabela.SelecionarFaixa(rbt12Original)
	faixaAtual := tabela.SelecionarFaixa(rbt12Atual)
	efetiva := tabela.AliquotaEfetiva(rbt12Original)

	det := DetalheAnexo{
		Anexo:                tabela.Anexo,
		FaixaOriginal:        faixaOriginal.Faixa,
		FaixaAtual:           faixaAtual.Faixa,
		RBT12Original:        rbt12Original,
		RBT12Atual:           rbt12Atual,
		AliquotaNominal:      faixaOriginal.Aliquota,
		AliquotaEfetiva:      arredondar4(efetiva),
		AliquotaEfetivaAtual: arredondar4(tabela.AliquotaEfetiva(rbt12Atual)),
		ParcelasAjuste:       []ParcelaAjuste{},
	}

	for _, atividade := range atividades {
		regra := DetectarRegra(atividade.Nome)
		if regra == "" {
			for _, parcela := range atividade.Parcelas {
				if parcela.Regra != "" {
					regra = parcela.Regra
					break
				}
				if r := DetectarRegra(parcela.Nome); r != "" {
					regra = r
					break
				}
			}
		}
		if regra == "" {
			continue
		}
		det.ParcelasAjuste = append(det.ParcelasAjuste,
			calcularAjuste(atividade, regra, faixaOriginal, efetiva))
	}

	return det
}

// calcularAjuste backs the substituted/withheld share out of the effective
// rate for one activity. The applied factor is the real ratio when it looks
// genuine, otherwise the table-derived estimate (1 - share/100).
func calcularAjuste(atividade Atividade, regra string, faixa Faixa, efetiva decimal.Decimal) ParcelaAjuste {
	participacao := faixa.ICMS
	if regra == RegraISSRetencao {
		participacao = faixa.ISS
	}
	fatorEstimado := decimal.NewFromInt(1).Sub(participacao.Div(cem))

	// Real ratio: what the activity actually paid against what the nominal
	// rate says it owes. Zero when either side is missing.
	fatorReal := decimal.Zero
	teorico := atividade.ReceitaDeclarada.Mul(faixa.Aliquota).Div(cem)
	if teorico.IsPositive() {
		fatorReal = atividade.Tributos.Total.Div(teorico)
	}

	fatorAplicado := fatorReal
	if fatorReal.IsZero() || fatorReal.GreaterThanOrEqual(LimiteRazaoConfiavel) {
		fatorAplicado = fatorEstimado
	}

	return ParcelaAjuste{
		Atividade:        atividade.Nome,
		Regra:            regra,
		FatorEstimado:    fatorEstimado.Round(4),
		FatorReal:        fatorReal.Round(4),
		FatorAplicado:    fatorAplicado.Round(4),
		AliquotaAjustada: arredondar4(efetiva.Mul(fatorAplicado)),
	}
}

// aliquotaManchete is the headline effective burden shown at the top level:
// taxes actually due over the period's revenue, at one decimal place. When
// the period revenue is missing, the first annex detail's effective rate is
// used instead.
func aliquotaManchete(tributos Tributos, receitaPA decimal.Decimal, analise AnaliseAliquota) decimal.Decimal {
	if receitaPA.IsPositive() && tributos.Total.IsPositive() {
		return tributos.Total.Div(receitaPA).Mul(cem).Round(1)
	}
	if len(analise.Detalhe) > 0 {
		return analise.Detalhe[0].AliquotaEfetiva.Round(1)
	}
	return decimal.Zero
}
