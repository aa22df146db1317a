package pgdasd

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var normalizadorAcentos = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizarTexto strips accents and lowercases, so keyword matching does not
// depend on how the upstream extractor rendered diacritics.
func normalizarTexto(s string) string {
	limpo, _, err := transform.String(normalizadorAcentos, s)
	if err != nil {
		limpo = s
	}
	return strings.ToLower(limpo)
}

var reNegacaoExterior = regexp.MustCompile(`\bnao\b[^,;.]*\bexterior\b`)

// ClassificarSegmento decides whether an activity description refers to the
// foreign market. Negation phrases ("exceto para o exterior") always win over
// the foreign-market keywords, defaulting to the domestic market.
func ClassificarSegmento(nome string) Segmento {
	texto := normalizarTexto(nome)

	if strings.Contains(texto, "exceto para o exterior") ||
		strings.Contains(texto, "exceto exportacao") ||
		reNegacaoExterior.MatchString(texto) {
		return SegmentoInterno
	}
	if strings.Contains(texto, "para o exterior") ||
		strings.Contains(texto, "mercado externo") ||
		strings.Contains(texto, "exportacao") {
		return SegmentoExterno
	}
	return SegmentoInterno
}

// ClassificarCategoria decides between goods and services revenue.
func ClassificarCategoria(nome string) Categoria {
	texto := normalizarTexto(nome)
	if strings.Contains(texto, "servico") ||
		strings.Contains(texto, "prestacao") {
		return CategoriaServicos
	}
	return CategoriaMercadorias
}

// Classificar fills in the market segment and revenue category of an activity
// from its declared description.
func Classificar(a *Atividade) {
	a.Segmento = ClassificarSegmento(a.Nome)
	a.Categoria = ClassificarCategoria(a.Nome)
}

var reAnexoRomano = regexp.MustCompile(`\banexo\s+(i{1,3}|iv|v)\b`)

var romanos = map[string]int{"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5}

// AnexoDaAtividade maps an activity description onto a statutory annex.
// PGDAS-D descriptions usually name the annex explicitly ("... - Anexo I");
// when they do not, industry/commerce keywords decide between annexes 1 and 2
// and services default to annex 3.
func AnexoDaAtividade(a Atividade) int {
	texto := normalizarTexto(a.Nome)

	if m := reAnexoRomano.FindStringSubmatch(texto); m != nil {
		if n, ok := romanos[m[1]]; ok {
			return n
		}
	}

	if a.Categoria == CategoriaMercadorias {
		if strings.Contains(texto, "industria") ||
			strings.Contains(texto, "industrializacao") ||
			strings.Contains(texto, "fabricacao") {
			return 2
		}
		return 1
	}

	if strings.Contains(texto, "construcao") ||
		strings.Contains(texto, "vigilancia") ||
		strings.Contains(texto, "limpeza") ||
		strings.Contains(texto, "obra") {
		return 4
	}
	return 3
}

// agruparTributos folds each activity's levies into one of the four buckets:
// goods/services x domestic/foreign. No activity contributes to more than one.
func agruparTributos(atividades []Atividade) (mercInt, mercExt, servInt, servExt Tributos) {
	for _, a := range atividades {
		switch {
		case a.Categoria == CategoriaMercadorias && a.Segmento == SegmentoInterno:
			mercInt.Acumular(a.Tributos)
		case a.Categoria == CategoriaMercadorias && a.Segmento == SegmentoExterno:
			mercExt.Acumular(a.Tributos)
		case a.Categoria == CategoriaServicos && a.Segmento == SegmentoInterno:
			servInt.Acumular(a.Tributos)
		default:
			servExt.Acumular(a.Tributos)
		}
	}
	return
}
