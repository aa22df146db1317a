package pgdasd

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/shopspring/decimal"
)

// valorFlex decodes a monetary JSON value that may arrive as a number, a
// plain decimal string ("1234.56") or a Brazilian-formatted string
// ("1.234,56"). Unparseable input decodes to zero.
type valorFlex struct {
	decimal.Decimal
}

func (v *valorFlex) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		v.Decimal = decimal.Zero
		return nil
	}
	if s[0] == '"' {
		var texto string
		if err := json.Unmarshal(data, &texto); err != nil {
			v.Decimal = decimal.Zero
			return nil
		}
		v.Decimal = parseValorFlex(texto)
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		v.Decimal = decimal.Zero
		return nil
	}
	v.Decimal = d
	return nil
}

func parseValorFlex(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	// A comma marks Brazilian formatting; otherwise try the plain decimal
	// form first so "1234.56" is not read as 123456.
	if !strings.Contains(s, ",") {
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return ParseValor(s)
}

// Shapes of the structured payload handed back by the upstream extraction
// service. Only the fields this core consumes are declared.

type docEstruturado struct {
	Cabecalho        *cabecalhoEstruturado        `json:"cabecalho"`
	Discriminativo   *discriminativoEstruturado   `json:"discriminativo_receitas"`
	Estabelecimentos []estabelecimentoEstruturado `json:"estabelecimentos"`
	TotalGeral       *totalGeralEstruturado       `json:"total_geral_empresa"`
	Declarado        *tributosEstruturado         `json:"declarado"`
}

type cabecalhoEstruturado struct {
	CNPJ             string `json:"cnpj"`
	RazaoSocial      string `json:"razao_social"`
	PeriodoApuracao  string `json:"periodo_apuracao"`
	NumeroDeclaracao string `json:"numero_declaracao"`
	DataTransmissao  string `json:"data_transmissao"`
}

type discriminativoEstruturado struct {
	ReceitaBrutaPA   valorFlex                    `json:"receita_bruta_pa"`
	RBT12            valorFlex                    `json:"rbt12"`
	RBA              valorFlex                    `json:"rba"`
	RBAA             valorFlex                    `json:"rbaa"`
	MercadoExterno   *discriminativoExterno       `json:"mercado_externo"`
	HistoricoInterno []pontoEstruturado           `json:"historico_mercado_interno"`
	HistoricoExterno []pontoEstruturado           `json:"historico_mercado_externo"`
}

type discriminativoExterno struct {
	ReceitaBrutaPA valorFlex `json:"receita_bruta_pa"`
	RBT12          valorFlex `json:"rbt12"`
}

type pontoEstruturado struct {
	Periodo string    `json:"periodo"`
	Valor   valorFlex `json:"valor"`
}

type estabelecimentoEstruturado struct {
	CNPJ       string                `json:"cnpj"`
	Totais     *totaisEstruturado    `json:"totais"`
	Atividades []atividadeEstruturada `json:"atividades"`
}

type totaisEstruturado struct {
	Exigivel  *tributosEstruturado `json:"exigivel"`
	Declarado *tributosEstruturado `json:"declarado"`
}

type totalGeralEstruturado struct {
	Exigivel *tributosEstruturado `json:"exigivel"`
}

type atividadeEstruturada struct {
	Nome         string                `json:"nome"`
	ReceitaBruta valorFlex             `json:"receita_bruta"`
	Tributos     *tributosEstruturado  `json:"tributos"`
	Parcelas     []parcelaEstruturada  `json:"parcelas"`
}

type parcelaEstruturada struct {
	Nome            string    `json:"nome"`
	Regra           string    `json:"regra"`
	Valor           valorFlex `json:"valor"`
	AliquotaEfetiva valorFlex `json:"aliquota_efetiva"`
}

type tributosEstruturado struct {
	IRPJ    valorFlex `json:"irpj"`
	CSLL    valorFlex `json:"csll"`
	COFINS  valorFlex `json:"cofins"`
	PIS     valorFlex `json:"pis"`
	INSSCPP valorFlex `json:"inss_cpp"`
	ICMS    valorFlex `json:"icms"`
	IPI     valorFlex `json:"ipi"`
	ISS     valorFlex `json:"iss"`
	Total   valorFlex `json:"total"`
}

func (t *tributosEstruturado) converter() Tributos {
	if t == nil {
		return Tributos{}
	}
	out := Tributos{
		IRPJ:    t.IRPJ.Decimal,
		CSLL:    t.CSLL.Decimal,
		COFINS:  t.COFINS.Decimal,
		PIS:     t.PIS.Decimal,
		INSSCPP: t.INSSCPP.Decimal,
		ICMS:    t.ICMS.Decimal,
		IPI:     t.IPI.Decimal,
		ISS:     t.ISS.Decimal,
		Total:   t.Total.Decimal,
	}
	out.Preencher()
	return out
}

// decodificarEstruturado attempts the structured parse, with a tolerant
// repair pass for payloads the upstream service mangled. A false return
// means "treat the input as plain text"; no error surfaces to the caller.
func decodificarEstruturado(texto string) (*docEstruturado, bool) {
	if doc, ok := decodificarJSON(texto); ok {
		return doc, true
	}
	reparado, err := jsonrepair.RepairJSON(texto)
	if err != nil {
		return nil, false
	}
	// Repair can coerce arbitrary text into an empty object; only accept the
	// repaired document when it carries recognizable declaration content,
	// otherwise the caller falls back to the text extractor.
	doc, ok := decodificarJSON(reparado)
	if !ok || !doc.temConteudo() {
		return nil, false
	}
	return doc, true
}

func (doc *docEstruturado) temConteudo() bool {
	return doc.Cabecalho != nil || doc.Discriminativo != nil ||
		len(doc.Estabelecimentos) > 0 || doc.TotalGeral != nil || doc.Declarado != nil
}

func decodificarJSON(texto string) (*docEstruturado, bool) {
	recorte := strings.TrimSpace(texto)
	if strings.HasPrefix(recorte, "[") {
		var docs []docEstruturado
		if err := json.Unmarshal([]byte(recorte), &docs); err != nil || len(docs) == 0 {
			return nil, false
		}
		return &docs[0], true
	}
	var doc docEstruturado
	if err := json.Unmarshal([]byte(recorte), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// tributosEmpresa resolves the company-level tax figures. Upstream sources
// disagree in practice, so the first source with a positive total wins:
// company-level exigible, summed establishment figures, the raw declared
// block when not all-zero, then the sum over activity tax amounts.
func (doc *docEstruturado) tributosEmpresa() (Tributos, string) {
	if doc.TotalGeral != nil && doc.TotalGeral.Exigivel != nil {
		t := doc.TotalGeral.Exigivel.converter()
		if t.Total.IsPositive() {
			return t, "total_geral_empresa"
		}
	}

	var porEstabelecimento Tributos
	for _, est := range doc.Estabelecimentos {
		if est.Totais == nil {
			continue
		}
		if est.Totais.Exigivel != nil {
			porEstabelecimento.Acumular(est.Totais.Exigivel.converter())
		} else if est.Totais.Declarado != nil {
			porEstabelecimento.Acumular(est.Totais.Declarado.converter())
		}
	}
	if porEstabelecimento.Total.IsPositive() {
		return porEstabelecimento, "estabelecimentos"
	}

	if doc.Declarado != nil {
		t := doc.Declarado.converter()
		if !t.Zerado() {
			return t, "declarado"
		}
	}

	var porAtividade Tributos
	for _, est := range doc.Estabelecimentos {
		for _, at := range est.Atividades {
			porAtividade.Acumular(at.Tributos.converter())
		}
	}
	return porAtividade, "atividades"
}

// extrairEstruturado walks the typed JSON tree, mirroring the field set of
// the plain-text waterfall extraction.
func (p *Parser) extrairEstruturado(doc *docEstruturado) *extracao {
	ex := novaExtracao()

	if doc.Cabecalho != nil {
		ex.ident = Identificacao{
			CNPJ:             formatarCNPJ(doc.Cabecalho.CNPJ),
			RazaoSocial:      strings.TrimSpace(doc.Cabecalho.RazaoSocial),
			PeriodoApuracao:  strings.TrimSpace(doc.Cabecalho.PeriodoApuracao),
			NumeroDeclaracao: strings.TrimSpace(doc.Cabecalho.NumeroDeclaracao),
			DataTransmissao:  strings.TrimSpace(doc.Cabecalho.DataTransmissao),
		}
	}
	if ex.ident.CNPJ == "" {
		for _, est := range doc.Estabelecimentos {
			if est.CNPJ != "" {
				ex.ident.CNPJ = formatarCNPJ(est.CNPJ)
				break
			}
		}
	}
	ex.registrarAusencia("cnpj", ex.ident.CNPJ == "")
	ex.registrarAusencia("periodo_apuracao", ex.ident.PeriodoApuracao == "")

	if d := doc.Discriminativo; d != nil {
		ex.receitas.ReceitaBrutaPA = d.ReceitaBrutaPA.Decimal
		ex.receitas.RBT12 = d.RBT12.Decimal
		ex.receitas.RBA = d.RBA.Decimal
		ex.receitas.RBAA = d.RBAA.Decimal
		if d.MercadoExterno != nil {
			ex.receitas.MercadoExterno.ReceitaBrutaPA = d.MercadoExterno.ReceitaBrutaPA.Decimal
			ex.receitas.MercadoExterno.RBT12 = d.MercadoExterno.RBT12.Decimal
		}
		for _, ponto := range d.HistoricoInterno {
			ex.histInterno = append(ex.histInterno, PontoMensal{Periodo: ponto.Periodo, Valor: ponto.Valor.Decimal})
		}
		for _, ponto := range d.HistoricoExterno {
			ex.histExterno = append(ex.histExterno, PontoMensal{Periodo: ponto.Periodo, Valor: ponto.Valor.Decimal})
		}
	}
	ex.registrarAusencia("receita_bruta_pa", !ex.receitas.ReceitaBrutaPA.IsPositive())

	for _, est := range doc.Estabelecimentos {
		for _, at := range est.Atividades {
			atividade := Atividade{
				Nome:             strings.TrimSpace(at.Nome),
				ReceitaDeclarada: at.ReceitaBruta.Decimal,
				Tributos:         at.Tributos.converter(),
			}
			for _, parc := range at.Parcelas {
				atividade.Parcelas = append(atividade.Parcelas, Parcela{
					Nome:            strings.TrimSpace(parc.Nome),
					Regra:           strings.TrimSpace(parc.Regra),
					Valor:           parc.Valor.Decimal,
					AliquotaEfetiva: parc.AliquotaEfetiva.Decimal,
				})
			}
			Classificar(&atividade)
			ex.atividades = append(ex.atividades, atividade)
		}
	}

	var fonteTributos string
	ex.tributos, fonteTributos = doc.tributosEmpresa()
	ex.trechos["tributos_fonte"] = fonteTributos
	ex.registrarAusencia("tributos", ex.tributos.Zerado())

	ex.valorDebitos = ex.tributos.Total
	return ex
}
