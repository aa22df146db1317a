package pgdasd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

// ParseFile reads a PGDAS-D PDF from disk, recovers its text and runs the
// extraction pipeline. I/O is confined to this adapter; Parse itself stays
// pure.
func (p *Parser) ParseFile(caminho string) (*Documento, error) {
	arquivo, err := os.Open(caminho)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if cerr := arquivo.Close(); cerr != nil {
			p.log.Warn("pgdasd.pdf.close", "erro", cerr)
		}
	}()

	return p.ParsePDF(arquivo)
}

// ParsePDF extracts the text of a PGDAS-D PDF and hands it to Parse.
func (p *Parser) ParsePDF(leitor io.ReadSeeker) (*Documento, error) {
	dados, err := io.ReadAll(leitor)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF data: %w", err)
	}

	texto, err := extrairTextoPDF(dados)
	if err != nil {
		return nil, err
	}
	return p.Parse(texto), nil
}

// extrairTextoPDF pulls the text content of every page via pdfcpu.
func extrairTextoPDF(dados []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(dados), conf)
	if err != nil {
		return "", fmt.Errorf("failed to read and validate PDF: %w", err)
	}

	var texto strings.Builder
	for pagina := 1; pagina <= ctx.PageCount; pagina++ {
		conteudo, err := pdfcpu.ExtractPageContent(ctx, pagina)
		if err != nil || conteudo == nil {
			continue
		}
		bruto, err := io.ReadAll(conteudo)
		if err != nil {
			continue
		}
		texto.WriteString(extrairTextoConteudo(string(bruto)))
		texto.WriteString("\n")
	}
	return texto.String(), nil
}

// extrairTextoConteudo parses a PDF content stream for its text-showing
// operators: literal strings in parentheses and hex strings in angle
// brackets.
func extrairTextoConteudo(conteudo string) string {
	var resultado strings.Builder

	for _, s := range extrairStringsPDF(conteudo) {
		resultado.WriteString(decodificarStringPDF(s))
		resultado.WriteString("\n")
	}

	i := 0
	for i < len(conteudo) {
		if conteudo[i] != '<' {
			i++
			continue
		}
		fim := strings.IndexByte(conteudo[i+1:], '>')
		if fim < 0 {
			break
		}
		hex := conteudo[i+1 : i+1+fim]
		if texto := decodificarHexPDF(hex); texto != "" {
			resultado.WriteString(texto)
			resultado.WriteString("\n")
		}
		i += fim + 2
	}

	return resultado.String()
}

// extrairStringsPDF collects every parenthesized literal string, handling
// escapes and nested parentheses.
func extrairStringsPDF(conteudo string) []string {
	var resultados []string
	i := 0
	for i < len(conteudo) {
		if conteudo[i] == '(' {
			s, fim := extrairStringPDF(conteudo, i)
			if fim > i {
				resultados = append(resultados, s)
				i = fim
				continue
			}
		}
		i++
	}
	return resultados
}

// extrairStringPDF reads one parenthesized string starting at inicio and
// returns its content (outer parens excluded) and the index past the closer.
func extrairStringPDF(conteudo string, inicio int) (string, int) {
	if inicio >= len(conteudo) || conteudo[inicio] != '(' {
		return "", inicio
	}

	var resultado strings.Builder
	profundidade := 0
	i := inicio

	for i < len(conteudo) {
		c := conteudo[i]
		if c == '\\' && i+1 < len(conteudo) {
			resultado.WriteByte(c)
			resultado.WriteByte(conteudo[i+1])
			i += 2
			continue
		}
		switch {
		case c == '(':
			profundidade++
			if profundidade > 1 {
				resultado.WriteByte(c)
			}
		case c == ')':
			profundidade--
			if profundidade == 0 {
				return resultado.String(), i + 1
			}
			resultado.WriteByte(c)
		case profundidade > 0:
			resultado.WriteByte(c)
		}
		i++
	}
	return resultado.String(), i
}

// decodificarStringPDF resolves escape sequences in a literal string.
func decodificarStringPDF(s string) string {
	var resultado strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '\\' || i+1 >= len(s) {
			resultado.WriteByte(s[i])
			i++
			continue
		}
		switch s[i+1] {
		case 'n':
			resultado.WriteByte('\n')
		case 'r':
			resultado.WriteByte('\r')
		case 't':
			resultado.WriteByte('\t')
		case 'b':
			resultado.WriteByte('\b')
		case 'f':
			resultado.WriteByte('\f')
		case '(', ')', '\\':
			resultado.WriteByte(s[i+1])
		default:
			if s[i+1] >= '0' && s[i+1] <= '7' {
				octal := string(s[i+1])
				j := i + 2
				for k := 0; k < 2 && j < len(s) && s[j] >= '0' && s[j] <= '7'; k++ {
					octal += string(s[j])
					j++
				}
				// Octal escapes are raw bytes in the string's encoding; the
				// charmap pass below resolves them.
				if valor, err := strconv.ParseInt(octal, 8, 32); err == nil && valor < 256 {
					resultado.WriteByte(byte(valor))
				}
				i = j
				continue
			}
			resultado.WriteByte(s[i+1])
		}
		i += 2
	}

	return paraUTF8(resultado.String())
}

// paraUTF8 re-decodes Windows-1252 bytes (the usual encoding of pt-BR PDFs)
// when the string is not already valid UTF-8.
func paraUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	if convertido, err := charmap.Windows1252.NewDecoder().String(s); err == nil {
		return convertido
	}
	return s
}

// decodificarHexPDF decodes an angle-bracket hex string, handling UTF-16BE
// (with or without BOM) and single-byte Windows-1252 text.
func decodificarHexPDF(hex string) string {
	if len(hex)%2 != 0 {
		hex += "0"
	}

	dados := make([]byte, 0, len(hex)/2)
	for i := 0; i+1 < len(hex); i += 2 {
		valor, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return ""
		}
		dados = append(dados, byte(valor))
	}

	if len(dados) >= 2 && dados[0] == 0xFE && dados[1] == 0xFF {
		return decodificarUTF16BE(dados[2:])
	}
	if pareceUTF16BE(dados) {
		return decodificarUTF16BE(dados)
	}

	var resultado strings.Builder
	for _, b := range dados {
		if b >= 32 {
			resultado.WriteByte(b)
		}
	}
	return paraUTF8(resultado.String())
}

// pareceUTF16BE reports whether the bytes look like UTF-16BE text: for
// ASCII-range characters the high byte of each pair is zero.
func pareceUTF16BE(dados []byte) bool {
	if len(dados) < 4 || len(dados)%2 != 0 {
		return false
	}
	zeros := 0
	for i := 0; i < len(dados); i += 2 {
		if dados[i] == 0 {
			zeros++
		}
	}
	return zeros > len(dados)/4
}

func decodificarUTF16BE(dados []byte) string {
	if len(dados)%2 != 0 {
		dados = append(dados, 0)
	}
	u16 := make([]uint16, len(dados)/2)
	for i := 0; i < len(dados); i += 2 {
		u16[i/2] = uint16(dados[i])<<8 | uint16(dados[i+1])
	}

	var resultado strings.Builder
	for _, r := range utf16.Decode(u16) {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			resultado.WriteRune(r)
		}
	}
	return resultado.String()
}
