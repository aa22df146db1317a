package pgdasd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// chavePeriodo turns "MM/YYYY" into a sortable year*100+month key, zero when
// the period is malformed.
func chavePeriodo(periodo string) int {
	mes, ano, ok := strings.Cut(periodo, "/")
	if !ok {
		return 0
	}
	m, err1 := strconv.Atoi(strings.TrimSpace(mes))
	a, err2 := strconv.Atoi(strings.TrimSpace(ano))
	if err1 != nil || err2 != nil || m < 1 || m > 12 {
		return 0
	}
	return a*100 + m
}

// ordenarSerie sorts a monthly series ascending by (year, month), merging
// duplicate periods by summing their values.
func ordenarSerie(serie []PontoMensal) []PontoMensal {
	porPeriodo := make(map[string]decimal.Decimal, len(serie))
	for _, p := range serie {
		porPeriodo[p.Periodo] = porPeriodo[p.Periodo].Add(p.Valor)
	}
	out := make([]PontoMensal, 0, len(porPeriodo))
	for periodo, valor := range porPeriodo {
		out = append(out, PontoMensal{Periodo: periodo, Valor: valor})
	}
	sort.Slice(out, func(i, j int) bool {
		return chavePeriodo(out[i].Periodo) < chavePeriodo(out[j].Periodo)
	})
	return out
}

// mesclarSeries combines the domestic and foreign monthly series into one
// series keyed by period, summing where both markets report the same month.
func mesclarSeries(interno, externo []PontoMensal) []PontoMensal {
	combinada := make([]PontoMensal, 0, len(interno)+len(externo))
	combinada = append(combinada, interno...)
	combinada = append(combinada, externo...)
	return ordenarSerie(combinada)
}

// somarUltimos sums the trailing n points of an already-sorted series; with
// fewer than n points the whole series is summed.
func somarUltimos(serie []PontoMensal, n int) decimal.Decimal {
	inicio := 0
	if len(serie) > n {
		inicio = len(serie) - n
	}
	total := decimal.Zero
	for _, p := range serie[inicio:] {
		total = total.Add(p.Valor)
	}
	return total
}

// reconstruirRBT12 derives the current and next-period RBT12 figures.
//
// The original figure is the one the document supplies directly when positive,
// otherwise the sum of the trailing 12 points of the combined series. The
// projected figure slides the 12-month window forward one month: subtract the
// oldest of the trailing 12 and add the current period's revenue. With fewer
// than 12 points there is not enough history to project, so the original value
// carries over unchanged.
func reconstruirRBT12(combinada []PontoMensal, rbt12Documento, receitaPA decimal.Decimal) (original, atual decimal.Decimal) {
	original = rbt12Documento
	if !original.IsPositive() {
		original = somarUltimos(combinada, 12)
	}

	if len(combinada) < 12 {
		return original, original
	}
	maisAntigo := combinada[len(combinada)-12].Valor
	atual = original.Sub(maisAntigo).Add(receitaPA)
	return original, atual
}
