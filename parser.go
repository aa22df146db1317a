package pgdasd

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VersaoParser is reported in metadata.versao of every output record.
const VersaoParser = "1.2.0"

// Fonte values reported in metadata.fonte and debug.fonte.
const (
	FonteTexto       = "texto"
	FonteEstruturado = "estruturado"
)

// Parser turns a PGDAS-D declaration - raw PDF text or the structured JSON of
// the upstream extraction service - into a normalized Documento. A Parser is
// stateless apart from its configuration and safe for concurrent use.
type Parser struct {
	debug   bool
	log     *slog.Logger
	tabelas *Tabelas
}

// NewParser creates a Parser over the embedded statute tables.
func NewParser() *Parser {
	return &Parser{
		log:     slog.Default(),
		tabelas: TabelasPadrao(),
	}
}

// SetDebug enables retention of raw input and matched slices in the output's
// debug block.
func (p *Parser) SetDebug(debug bool) {
	p.debug = debug
}

// SetLogger replaces the parser's logger. Nil is ignored.
func (p *Parser) SetLogger(l *slog.Logger) {
	if l != nil {
		p.log = l
	}
}

// SetTabelas injects an alternative statute pack (see CarregarTabelas).
// Nil is ignored.
func (p *Parser) SetTabelas(t *Tabelas) {
	if t != nil {
		p.tabelas = t
	}
}

// Parse processes one declaration. When the first non-whitespace character
// opens a JSON document the structured extractor runs; malformed JSON falls
// back silently to plain-text extraction - a mangled blob is legal input
// meaning "treat as text". Parse never fails: the record is best-effort and
// always carries success=true, with misses listed in debug.camposAusentes.
func (p *Parser) Parse(texto string) *Documento {
	inicio := strings.TrimSpace(texto)
	if strings.HasPrefix(inicio, "{") || strings.HasPrefix(inicio, "[") {
		if doc, ok := decodificarEstruturado(inicio); ok {
			p.log.Debug("pgdasd.parse", "fonte", FonteEstruturado)
			return p.montarDocumento(p.extrairEstruturado(doc), FonteEstruturado, texto)
		}
		p.log.Debug("pgdasd.parse.fallback", "motivo", "payload estruturado invalido")
	}
	p.log.Debug("pgdasd.parse", "fonte", FonteTexto)
	return p.montarDocumento(p.extrairTexto(texto), FonteTexto, texto)
}

// extracao accumulates intermediate extraction state before assembly.
type extracao struct {
	ident        Identificacao
	receitas     Receitas
	tributos     Tributos
	atividades   []Atividade
	histInterno  []PontoMensal
	histExterno  []PontoMensal
	valorDebitos decimal.Decimal
	ausentes     []string
	trechos      map[string]string
}

func novaExtracao() *extracao {
	return &extracao{
		ausentes: []string{},
		trechos:  map[string]string{},
	}
}

func (ex *extracao) registrarAusencia(campo string, ausente bool) {
	if ausente {
		ex.ausentes = append(ex.ausentes, campo)
	}
}

// ---- waterfall machinery ----
//
// Each fiscal field is extracted by an ordered list of strategies; the first
// one that yields a match wins and later ones are not attempted. Strategies
// are data, so adding or reordering one is not a control-flow change.

type estrategiaValor struct {
	nome    string
	extrair func(texto string) (decimal.Decimal, bool)
}

type estrategiaTexto struct {
	nome    string
	extrair func(texto string) string
}

func (p *Parser) aplicarCadeiaValor(ex *extracao, campo, texto string, cadeia []estrategiaValor) decimal.Decimal {
	for _, e := range cadeia {
		valor, ok := p.executarValor(campo, e, texto)
		if ok {
			ex.trechos[campo] = e.nome + ": " + valor.String()
			return valor
		}
	}
	ex.registrarAusencia(campo, true)
	return decimal.Zero
}

// executarValor isolates one strategy so a panic on unexpected input (a regex
// group access, a slice out of range) cannot abort the rest of the document.
func (p *Parser) executarValor(campo string, e estrategiaValor, texto string) (valor decimal.Decimal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("pgdasd.extracao.panico", "campo", campo, "estrategia", e.nome, "erro", r)
			valor, ok = decimal.Zero, false
		}
	}()
	return e.extrair(texto)
}

func (p *Parser) aplicarCadeiaTexto(ex *extracao, campo, texto string, cadeia []estrategiaTexto) string {
	for _, e := range cadeia {
		valor := p.executarTexto(campo, e, texto)
		if valor != "" {
			ex.trechos[campo] = e.nome + ": " + valor
			return valor
		}
	}
	ex.registrarAusencia(campo, true)
	return ""
}

func (p *Parser) executarTexto(campo string, e estrategiaTexto, texto string) (valor string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("pgdasd.extracao.panico", "campo", campo, "estrategia", e.nome, "erro", r)
			valor = ""
		}
	}()
	return e.extrair(texto)
}

// valorCapturado builds a strategy from a single-capture pattern.
func valorCapturado(re *regexp.Regexp) func(string) (decimal.Decimal, bool) {
	return func(texto string) (decimal.Decimal, bool) {
		m := re.FindStringSubmatch(texto)
		if len(m) < 2 || m[1] == "" {
			return decimal.Zero, false
		}
		return ParseValor(m[1]), true
	}
}

func textoCapturado(re *regexp.Regexp) func(string) string {
	return func(texto string) string {
		m := re.FindStringSubmatch(texto)
		if len(m) < 2 {
			return ""
		}
		return strings.TrimSpace(m[1])
	}
}

// valorNaSecao scans for the first money token inside a fixed section marker
// (e.g. "2.1)"), up to the next section heading.
func valorNaSecao(marcador string) func(string) (decimal.Decimal, bool) {
	return func(texto string) (decimal.Decimal, bool) {
		idx := strings.Index(texto, marcador)
		if idx < 0 {
			return decimal.Zero, false
		}
		trecho := texto[idx+len(marcador):]
		if fim := reProximaSecao.FindStringIndex(trecho); fim != nil {
			trecho = trecho[:fim[0]]
		} else if len(trecho) > 400 {
			trecho = trecho[:400]
		}
		token := reDinheiro.FindString(trecho)
		if token == "" {
			return decimal.Zero, false
		}
		return ParseValor(token), true
	}
}

// ---- patterns ----

var (
	// Brazilian money token: optional thousands groups, mandatory cents.
	reDinheiro      = regexp.MustCompile(`\d+(?:\.\d{3})*,\d{2}`)
	reDinheiroFinal = regexp.MustCompile(`(?:\s*\d+(?:\.\d{3})*,\d{2,4})+\s*$`)
	reProximaSecao  = regexp.MustCompile(`\n\s*\d+\.\d+\)`)

	reLinhaReceitaPA  = regexp.MustCompile(`(?i)receita\s+bruta\s+do\s+pa[^\n]*`)
	reReceitaPAUnica  = regexp.MustCompile(`(?i)receita\s+bruta\s+do\s+pa\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)
	reReceitaTotalAlt = regexp.MustCompile(`(?i)total\s+da\s+receita\s+bruta\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)

	reRBT12Sigla = regexp.MustCompile(`(?i)\(\s*rbt12\s*\)\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)
	reRBT12      = regexp.MustCompile(`(?i)\brbt12\b\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)
	reRBASigla   = regexp.MustCompile(`(?i)\(\s*rba\s*\)\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)
	reRBA        = regexp.MustCompile(`(?i)\brba\b\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)
	reRBAASigla  = regexp.MustCompile(`(?i)\(\s*rbaa\s*\)\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)
	reRBAA       = regexp.MustCompile(`(?i)\brbaa\b\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)

	reMercadoExterno = regexp.MustCompile(`(?i)mercado\s+externo`)

	reDebitos    = regexp.MustCompile(`(?i)(?:valor\s+)?total\s+d[oe]s?\s+d[ée]bitos?\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)
	reDebitosAlt = regexp.MustCompile(`(?i)total\s+geral\s+da\s+empresa\D{0,60}?(\d+(?:\.\d{3})*,\d{2})`)

	reCabecalhoTributos = regexp.MustCompile(`(?i)irpj\s+csll\s+cofins\s+pis(?:/pasep)?\s+(?:inss/?cpp|cpp|inss)\s+icms\s+ipi\s+iss(?:\s+total)?`)
	reLinhaTotais       = regexp.MustCompile(`(?im)^[^\S\n]*tota(?:is|l)\b[^\n]*`)

	rePeriodoRotulo = regexp.MustCompile(`(?i)per[íi]odo\s+de\s+apura[çc][ãa]o\s*(?:\(pa\))?\s*[:：]?\s*((?:0[1-9]|1[0-2])/(?:19|20)\d{2})`)
	rePeriodoPA     = regexp.MustCompile(`(?i)\bpa\b\D{0,10}?((?:0[1-9]|1[0-2])/(?:19|20)\d{2})`)
	rePeriodoSolto  = regexp.MustCompile(`\b((?:0[1-9]|1[0-2])/(?:19|20)\d{2})\b`)

	reCNPJFormatado = regexp.MustCompile(`(\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2})`)
	reCNPJRotulo    = regexp.MustCompile(`(?i)cnpj\D{0,10}?(\d{14})`)
	reRazaoSocial   = regexp.MustCompile(`(?i)(?:raz[ãa]o\s+social|nome\s+empresarial)\s*[:：]?\s*([^\n]+)`)

	reNumeroDeclaracao = regexp.MustCompile(`(?i)n[úu]mero\s+da\s+declara[çc][ãa]o\D{0,10}?(\d{5,20})`)
	reDataTransmissao  = regexp.MustCompile(`(?i)data\s+d[ae]\s+transmiss[ãa]o\D{0,10}?(\d{2}/\d{2}/\d{4})`)

	rePontoMensal    = regexp.MustCompile(`((?:0[1-9]|1[0-2])/(?:19|20)\d{2})[^\n0-9]{0,20}(\d+(?:\.\d{3})*,\d{2,4})`)
	reLinhaAtividade = regexp.MustCompile(`(?im)^[^\n]*\banexo\s+(?:i{1,3}|iv|v)\b[^\n]*$`)

	reNaoDigito = regexp.MustCompile(`\D`)
)

// extrairColunas splits a "MI / ME / Total" line segment into its columns.
// With two money tokens the row is the degenerate two-column shape: the
// second is the total and the foreign-market column is zero, never missing
// data. With three or more, the last token is the total - and a total smaller
// than a component is a parsing artifact, repaired to the maximum of every
// number found in the segment.
func extrairColunas(segmento string) (mi, me, total decimal.Decimal) {
	tokens := reDinheiro.FindAllString(segmento, -1)
	valores := make([]decimal.Decimal, len(tokens))
	for i, t := range tokens {
		valores[i] = ParseValor(t)
	}
	switch len(valores) {
	case 0:
		return decimal.Zero, decimal.Zero, decimal.Zero
	case 1:
		return decimal.Zero, decimal.Zero, valores[0]
	case 2:
		return valores[0], decimal.Zero, valores[1]
	}
	mi, me, total = valores[0], valores[1], valores[len(valores)-1]
	if total.LessThan(mi) || total.LessThan(me) {
		total = decimal.Max(valores[0], valores[1:]...)
	}
	return mi, me, total
}

// ---- plain-text extraction ----

func (p *Parser) extrairTexto(texto string) *extracao {
	ex := novaExtracao()

	ex.ident.CNPJ = p.aplicarCadeiaTexto(ex, "cnpj", texto, []estrategiaTexto{
		{"formatado", textoCapturado(reCNPJFormatado)},
		{"rotulo", func(t string) string {
			m := reCNPJRotulo.FindStringSubmatch(t)
			if len(m) < 2 {
				return ""
			}
			return formatarCNPJ(m[1])
		}},
	})
	ex.ident.RazaoSocial = p.aplicarCadeiaTexto(ex, "razao_social", texto, []estrategiaTexto{
		{"rotulo", textoCapturado(reRazaoSocial)},
		{"linha_apos_cnpj", linhaAposCNPJ},
	})
	ex.ident.PeriodoApuracao = p.aplicarCadeiaTexto(ex, "periodo_apuracao", texto, []estrategiaTexto{
		{"rotulo", textoCapturado(rePeriodoRotulo)},
		{"sigla_pa", textoCapturado(rePeriodoPA)},
		{"primeiro_periodo", textoCapturado(rePeriodoSolto)},
	})
	ex.ident.NumeroDeclaracao = primeiraCaptura(reNumeroDeclaracao, texto)
	ex.ident.DataTransmissao = primeiraCaptura(reDataTransmissao, texto)

	ex.receitas.ReceitaBrutaPA = p.aplicarCadeiaValor(ex, "receita_bruta_pa", texto, []estrategiaValor{
		{"colunas_apos_rotulo", func(t string) (decimal.Decimal, bool) {
			linha := reLinhaReceitaPA.FindString(t)
			if linha == "" || reDinheiro.FindString(linha) == "" {
				return decimal.Zero, false
			}
			_, me, total := extrairColunas(linha)
			ex.receitas.MercadoExterno.ReceitaBrutaPA = me
			return total, true
		}},
		{"captura_unica", valorCapturado(reReceitaPAUnica)},
		{"secao_2_1", valorNaSecao("2.1)")},
		{"rotulo_alternativo", valorCapturado(reReceitaTotalAlt)},
	})

	ex.receitas.RBT12 = p.aplicarCadeiaValor(ex, "rbt12", texto, []estrategiaValor{
		{"sigla_parenteses", valorCapturado(reRBT12Sigla)},
		{"rotulo", valorCapturado(reRBT12)},
	})
	ex.receitas.RBA = p.aplicarCadeiaValor(ex, "rba", texto, []estrategiaValor{
		{"sigla_parenteses", valorCapturado(reRBASigla)},
		{"rotulo", valorCapturado(reRBA)},
	})
	ex.receitas.RBAA = p.aplicarCadeiaValor(ex, "rbaa", texto, []estrategiaValor{
		{"sigla_parenteses", valorCapturado(reRBAASigla)},
		{"rotulo", valorCapturado(reRBAA)},
	})
	ex.receitas.MercadoExterno.RBT12 = p.aplicarCadeiaValor(ex, "rbt12_mercado_externo", texto, []estrategiaValor{
		{"secao_mercado_externo", rbt12MercadoExterno},
	})

	ex.tributos = p.extrairTributos(ex, texto)

	ex.valorDebitos = p.aplicarCadeiaValor(ex, "valor_total_debitos", texto, []estrategiaValor{
		{"rotulo", valorCapturado(reDebitos)},
		{"total_geral", valorCapturado(reDebitosAlt)},
	})

	ex.histInterno, ex.histExterno = extrairHistorico(texto)
	ex.atividades = extrairAtividades(texto)

	return ex
}

func primeiraCaptura(re *regexp.Regexp, texto string) string {
	m := re.FindStringSubmatch(texto)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// linhaAposCNPJ falls back to the line following the CNPJ, which in the PDF
// layout usually carries the company name.
func linhaAposCNPJ(texto string) string {
	loc := reCNPJFormatado.FindStringIndex(texto)
	if loc == nil {
		return ""
	}
	resto := texto[loc[1]:]
	linhas := strings.Split(resto, "\n")
	if len(linhas) < 2 {
		return ""
	}
	for _, linha := range linhas[1:] {
		linha = strings.TrimSpace(linha)
		if linha == "" {
			continue
		}
		// A name line is mostly letters; a line of digits is some other field.
		if len(reNaoDigito.ReplaceAllString(linha, "")) > len(linha)/2 {
			return ""
		}
		return linha
	}
	return ""
}

func rbt12MercadoExterno(texto string) (decimal.Decimal, bool) {
	loc := reMercadoExterno.FindStringIndex(texto)
	if loc == nil {
		return decimal.Zero, false
	}
	trecho := texto[loc[1]:]
	if len(trecho) > 600 {
		trecho = trecho[:600]
	}
	m := reRBT12.FindStringSubmatch(trecho)
	if len(m) < 2 {
		return decimal.Zero, false
	}
	return ParseValor(m[1]), true
}

// ---- tax table extraction ----

type estrategiaTributos struct {
	nome    string
	extrair func(texto string) (Tributos, bool)
}

func (p *Parser) extrairTributos(ex *extracao, texto string) Tributos {
	cadeia := []estrategiaTributos{
		{"linha_cabecalho", tributosPorCabecalho},
		{"bloco_totais", tributosPorBlocoTotais},
		{"secao_3_1", tributosNaSecao},
		{"rotulos_individuais", tributosPorRotulos},
	}
	for _, e := range cadeia {
		tributos, ok := p.executarTributos(e, texto)
		if ok {
			ex.trechos["tributos"] = e.nome
			tributos.Preencher()
			return tributos
		}
	}
	ex.registrarAusencia("tributos", true)
	return Tributos{}
}

func (p *Parser) executarTributos(e estrategiaTributos, texto string) (tributos Tributos, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("pgdasd.extracao.panico", "campo", "tributos", "estrategia", e.nome, "erro", r)
			tributos, ok = Tributos{}, false
		}
	}()
	return e.extrair(texto)
}

// montarTributos maps the nine ordered column values (eight levies plus an
// optional trailing total) onto a Tributos. At least the eight levies are
// required.
func montarTributos(tokens []string) (Tributos, bool) {
	if len(tokens) < 8 {
		return Tributos{}, false
	}
	t := Tributos{
		IRPJ:    ParseValor(tokens[0]),
		CSLL:    ParseValor(tokens[1]),
		COFINS:  ParseValor(tokens[2]),
		PIS:     ParseValor(tokens[3]),
		INSSCPP: ParseValor(tokens[4]),
		ICMS:    ParseValor(tokens[5]),
		IPI:     ParseValor(tokens[6]),
		ISS:     ParseValor(tokens[7]),
	}
	if len(tokens) > 8 {
		t.Total = ParseValor(tokens[8])
	}
	return t, true
}

func tributosPorCabecalho(texto string) (Tributos, bool) {
	loc := reCabecalhoTributos.FindStringIndex(texto)
	if loc == nil {
		return Tributos{}, false
	}
	trecho := texto[loc[1]:]
	if len(trecho) > 400 {
		trecho = trecho[:400]
	}
	tokens := reDinheiro.FindAllString(trecho, 9)
	return montarTributos(tokens)
}

func tributosPorBlocoTotais(texto string) (Tributos, bool) {
	for _, linha := range reLinhaTotais.FindAllString(texto, -1) {
		tokens := reDinheiro.FindAllString(linha, 9)
		if t, ok := montarTributos(tokens); ok {
			return t, true
		}
	}
	return Tributos{}, false
}

func tributosNaSecao(texto string) (Tributos, bool) {
	idx := strings.Index(texto, "3.1)")
	if idx < 0 {
		return Tributos{}, false
	}
	trecho := texto[idx:]
	if fim := reProximaSecao.FindStringIndex(trecho); fim != nil {
		trecho = trecho[:fim[0]]
	} else if len(trecho) > 600 {
		trecho = trecho[:600]
	}
	tokens := reDinheiro.FindAllString(trecho, 9)
	return montarTributos(tokens)
}

var rotulosTributos = []struct {
	nome string
	re   *regexp.Regexp
}{
	{"irpj", regexp.MustCompile(`(?i)\birpj\b[^\n]*`)},
	{"csll", regexp.MustCompile(`(?i)\bcsll\b[^\n]*`)},
	{"cofins", regexp.MustCompile(`(?i)\bcofins\b[^\n]*`)},
	{"pis", regexp.MustCompile(`(?i)\bpis(?:/pasep)?\b[^\n]*`)},
	{"inss_cpp", regexp.MustCompile(`(?i)\b(?:inss/?cpp|cpp|inss)\b[^\n]*`)},
	{"icms", regexp.MustCompile(`(?i)\bicms\b[^\n]*`)},
	{"ipi", regexp.MustCompile(`(?i)\bipi\b[^\n]*`)},
	{"iss", regexp.MustCompile(`(?i)\biss\b[^\n]*`)},
}

// tributosPorRotulos scans one line per levy. Each line may carry the MI/ME/
// Total columns, so the column-splitting rules (including the two-column
// degenerate case) apply per row.
func tributosPorRotulos(texto string) (Tributos, bool) {
	var t Tributos
	achou := false
	for _, rotulo := range rotulosTributos {
		linha := rotulo.re.FindString(texto)
		if linha == "" || reDinheiro.FindString(linha) == "" {
			continue
		}
		_, _, total := extrairColunas(linha)
		achou = true
		switch rotulo.nome {
		case "irpj":
			t.IRPJ = total
		case "csll":
			t.CSLL = total
		case "cofins":
			t.COFINS = total
		case "pis":
			t.PIS = total
		case "inss_cpp":
			t.INSSCPP = total
		case "icms":
			t.ICMS = total
		case "ipi":
			t.IPI = total
		case "iss":
			t.ISS = total
		}
	}
	return t, achou
}

// ---- history and activities ----

// extrairHistorico scans the monthly revenue series. Points found after the
// "Mercado Externo" marker belong to the foreign series; everything before it
// is domestic.
func extrairHistorico(texto string) (interno, externo []PontoMensal) {
	idxExterno := -1
	if loc := reMercadoExterno.FindStringIndex(texto); loc != nil {
		idxExterno = loc[0]
	}
	for _, m := range rePontoMensal.FindAllStringSubmatchIndex(texto, -1) {
		periodo := texto[m[2]:m[3]]
		valor := ParseValor(texto[m[4]:m[5]])
		ponto := PontoMensal{Periodo: periodo, Valor: valor}
		if idxExterno >= 0 && m[0] > idxExterno {
			externo = append(externo, ponto)
		} else {
			interno = append(interno, ponto)
		}
	}
	return interno, externo
}

// extrairAtividades collects the declared activity lines. PGDAS-D text names
// the annex on each activity ("Revenda de mercadorias ... - Anexo I"), which
// is also what anchors the line.
func extrairAtividades(texto string) []Atividade {
	var atividades []Atividade
	for _, linha := range reLinhaAtividade.FindAllString(texto, -1) {
		nome := strings.TrimSpace(reDinheiroFinal.ReplaceAllString(linha, ""))
		if nome == "" {
			continue
		}
		atividade := Atividade{Nome: nome}
		if tokens := reDinheiro.FindAllString(linha, -1); len(tokens) > 0 {
			atividade.ReceitaDeclarada = ParseValor(tokens[len(tokens)-1])
		}
		Classificar(&atividade)
		atividades = append(atividades, atividade)
	}
	return atividades
}

func formatarCNPJ(s string) string {
	digitos := reNaoDigito.ReplaceAllString(s, "")
	if len(digitos) != 14 {
		return strings.TrimSpace(s)
	}
	return digitos[0:2] + "." + digitos[2:5] + "." + digitos[5:8] + "/" + digitos[8:12] + "-" + digitos[12:14]
}

// ---- assembly ----

// montarDocumento merges everything into the final record. It never partially
// succeeds: a record with empty fields and success=true is still returned
// when extraction missed, because downstream consumers display partial data
// rather than fail outright.
func (p *Parser) montarDocumento(ex *extracao, fonte, textoBruto string) *Documento {
	ex.tributos.Preencher()
	mercInt, mercExt, servInt, servExt := agruparTributos(ex.atividades)

	interno := ordenarSerie(ex.histInterno)
	externo := ordenarSerie(ex.histExterno)
	combinada := mesclarSeries(interno, externo)

	rbt12Original, rbt12Atual := reconstruirRBT12(combinada, ex.receitas.RBT12, ex.receitas.ReceitaBrutaPA)
	if !ex.receitas.RBT12.IsPositive() {
		ex.receitas.RBT12 = rbt12Original
	}
	if !ex.receitas.MercadoExterno.RBT12.IsPositive() {
		ex.receitas.MercadoExterno.RBT12 = somarUltimos(externo, 12)
	}
	if !ex.valorDebitos.IsPositive() {
		ex.valorDebitos = ex.tributos.Total
	}

	analise := NovaAnalise(p.tabelas).Calcular(ex.atividades, rbt12Original, rbt12Atual)

	doc := &Documento{
		Success: true,
		Dados: Dados{
			Identificacao:              ex.ident,
			Receitas:                   ex.receitas,
			Tributos:                   ex.tributos,
			TributosMercadoriasInterno: mercInt,
			TributosMercadoriasExterno: mercExt,
			TributosServicosInterno:    servInt,
			TributosServicosExterno:    servExt,
			ValorTotalDebitos:          ex.valorDebitos,
			Calculos: Calculos{
				AliquotaEfetiva: aliquotaManchete(ex.tributos, ex.receitas.ReceitaBrutaPA, analise),
				AnaliseAliquota: analise,
			},
			Historico: Historico{
				MercadoInterno: interno,
				MercadoExterno: externo,
			},
		},
	}
	doc.Graficos = montarGraficos(doc.Dados, combinada)

	doc.Debug = Debug{
		ID:             uuid.NewString(),
		Fonte:          fonte,
		CamposAusentes: ex.ausentes,
	}
	if p.debug {
		doc.Debug.Trechos = ex.trechos
		doc.Debug.TextoBruto = textoBruto
	}

	doc.Metadata = Metadata{
		ProcessadoEm: time.Now().Format(time.RFC3339),
		Versao:       VersaoParser,
		Fonte:        fonte,
	}

	p.log.Info("pgdasd.parse.ok",
		"fonte", fonte,
		"cnpj", doc.Dados.Identificacao.CNPJ,
		"periodo", doc.Dados.Identificacao.PeriodoApuracao,
		"campos_ausentes", len(ex.ausentes),
	)
	return doc
}

var nomesAnexos = [...]string{"Anexo I", "Anexo II", "Anexo III", "Anexo IV", "Anexo V"}

// montarGraficos derives the chart-ready arrays deterministically from Dados.
func montarGraficos(d Dados, combinada []PontoMensal) Graficos {
	var g Graficos

	porPeriodoInterno := make(map[string]decimal.Decimal, len(d.Historico.MercadoInterno))
	for _, ponto := range d.Historico.MercadoInterno {
		porPeriodoInterno[ponto.Periodo] = ponto.Valor
	}
	porPeriodoExterno := make(map[string]decimal.Decimal, len(d.Historico.MercadoExterno))
	for _, ponto := range d.Historico.MercadoExterno {
		porPeriodoExterno[ponto.Periodo] = ponto.Valor
	}
	for _, ponto := range combinada {
		g.Historico.Labels = append(g.Historico.Labels, ponto.Periodo)
		g.Historico.Valores = append(g.Historico.Valores, ponto.Valor)
		g.Historico.ValoresInterno = append(g.Historico.ValoresInterno, porPeriodoInterno[ponto.Periodo])
		g.Historico.ValoresExterno = append(g.Historico.ValoresExterno, porPeriodoExterno[ponto.Periodo])
	}

	g.Tributos = GraficoSimples{
		Labels: []string{"IRPJ", "CSLL", "COFINS", "PIS", "INSS/CPP", "ICMS", "IPI", "ISS"},
		Valores: []decimal.Decimal{
			d.Tributos.IRPJ, d.Tributos.CSLL, d.Tributos.COFINS, d.Tributos.PIS,
			d.Tributos.INSSCPP, d.Tributos.ICMS, d.Tributos.IPI, d.Tributos.ISS,
		},
	}

	for _, sim := range d.Calculos.AnaliseAliquota.SimulacaoTodosAnexos {
		nome := ""
		if sim.Anexo >= 1 && sim.Anexo <= len(nomesAnexos) {
			nome = nomesAnexos[sim.Anexo-1]
		}
		g.Simulacao.Labels = append(g.Simulacao.Labels, nome)
		g.Simulacao.Valores = append(g.Simulacao.Valores, sim.AliquotaEfetiva)
	}

	return g
}
