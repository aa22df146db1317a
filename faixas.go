package pgdasd

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed tabelas.yaml
var tabelasEmbutidas []byte

// Faixa is one tier of a progressive bracket table: its revenue ceiling, the
// nominal rate, the deduction of the effective-rate formula and the ICMS/ISS
// repartition shares (percent of the effective rate).
type Faixa struct {
	Faixa    int             `yaml:"faixa"`
	Teto     decimal.Decimal `yaml:"-"`
	Aliquota decimal.Decimal `yaml:"-"`
	Deducao  decimal.Decimal `yaml:"-"`
	ICMS     decimal.Decimal `yaml:"-"`
	ISS      decimal.Decimal `yaml:"-"`
}

// Anexo is one of the five statutory tables of the Simples Nacional,
// selected by business-activity category.
type Anexo struct {
	Anexo  int     `yaml:"anexo"`
	Nome   string  `yaml:"nome"`
	Faixas []Faixa `yaml:"faixas"`
}

// Tabelas is the versioned, immutable statute pack injected into the rate
// analysis. Both the monthly and the simulated paths read from the same
// instance, so a law change is a one-place edit.
type Tabelas struct {
	Versao string  `yaml:"versao"`
	Anexos []Anexo `yaml:"anexos"`
}

// yaml intermediates: amounts arrive as plain numbers and are converted to
// decimals once, at load time.
type faixaYAML struct {
	Faixa    int     `yaml:"faixa"`
	Teto     float64 `yaml:"teto"`
	Aliquota float64 `yaml:"aliquota"`
	Deducao  float64 `yaml:"deducao"`
	ICMS     float64 `yaml:"icms"`
	ISS      float64 `yaml:"iss"`
}

type anexoYAML struct {
	Anexo  int         `yaml:"anexo"`
	Nome   string      `yaml:"nome"`
	Faixas []faixaYAML `yaml:"faixas"`
}

type tabelasYAML struct {
	Versao string      `yaml:"versao"`
	Anexos []anexoYAML `yaml:"anexos"`
}

func converterTabelas(raw tabelasYAML) (*Tabelas, error) {
	t := &Tabelas{Versao: raw.Versao}
	for _, a := range raw.Anexos {
		anexo := Anexo{Anexo: a.Anexo, Nome: a.Nome}
		for _, f := range a.Faixas {
			anexo.Faixas = append(anexo.Faixas, Faixa{
				Faixa:    f.Faixa,
				Teto:     decimal.NewFromFloat(f.Teto),
				Aliquota: decimal.NewFromFloat(f.Aliquota),
				Deducao:  decimal.NewFromFloat(f.Deducao),
				ICMS:     decimal.NewFromFloat(f.ICMS),
				ISS:      decimal.NewFromFloat(f.ISS),
			})
		}
		if len(anexo.Faixas) != 6 {
			return nil, fmt.Errorf("anexo %d: expected 6 faixas, got %d", a.Anexo, len(anexo.Faixas))
		}
		t.Anexos = append(t.Anexos, anexo)
	}
	return t, nil
}

var (
	tabelasPadrao     *Tabelas
	tabelasPadraoOnce sync.Once
)

// TabelasPadrao returns the embedded statute pack. The pack is decoded once
// and shared; it is never mutated after load.
func TabelasPadrao() *Tabelas {
	tabelasPadraoOnce.Do(func() {
		var raw tabelasYAML
		if err := yaml.Unmarshal(tabelasEmbutidas, &raw); err != nil {
			panic(fmt.Sprintf("pgdasd: embedded tabelas.yaml is invalid: %v", err))
		}
		t, err := converterTabelas(raw)
		if err != nil {
			panic(fmt.Sprintf("pgdasd: embedded tabelas.yaml is invalid: %v", err))
		}
		tabelasPadrao = t
	})
	return tabelasPadrao
}

// CarregarTabelas loads an alternative statute pack from a YAML file, for
// when the law changes ahead of a library release.
func CarregarTabelas(path string) (*Tabelas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tabelas: %w", err)
	}
	var raw tabelasYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tabelas: %w", err)
	}
	return converterTabelas(raw)
}

// Anexo returns the table of the given annex (1..5), nil when out of range.
func (t *Tabelas) Anexo(n int) *Anexo {
	for i := range t.Anexos {
		if t.Anexos[i].Anexo == n {
			return &t.Anexos[i]
		}
	}
	return nil
}

// SelecionarFaixa picks the smallest tier whose ceiling is >= rbt12. Revenue
// beyond every ceiling clamps to the sixth tier; zero or negative revenue
// falls into the first.
func (a *Anexo) SelecionarFaixa(rbt12 decimal.Decimal) Faixa {
	if !rbt12.IsPositive() {
		return a.Faixas[0]
	}
	for _, f := range a.Faixas {
		if rbt12.LessThanOrEqual(f.Teto) {
			return f
		}
	}
	return a.Faixas[len(a.Faixas)-1]
}

var cem = decimal.NewFromInt(100)

// AliquotaEfetiva computes the effective rate (percent) for the given RBT12:
// (rbt12 * nominal/100 - deducao) / rbt12, expressed back as a percentage.
// Intermediate terms are not rounded; callers round the final figure to the
// precision their presentation requires. At rbt12 <= 0 the formula has a zero
// denominator, so the first tier's nominal rate is returned instead.
func (a *Anexo) AliquotaEfetiva(rbt12 decimal.Decimal) decimal.Decimal {
	faixa := a.SelecionarFaixa(rbt12)
	if !rbt12.IsPositive() {
		return faixa.Aliquota
	}
	devido := rbt12.Mul(faixa.Aliquota).Div(cem).Sub(faixa.Deducao)
	return devido.Div(rbt12).Mul(cem)
}
