package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	pgdasd "github.com/brunomdrs/pgdasd-parser-go"
)

// Full example: accepts either a PGDAS-D PDF or an already-extracted text or
// JSON payload, runs the parser in debug mode and dumps the whole record,
// including the diagnostics block.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run example/main.go <file.pdf|file.txt|file.json>")
		os.Exit(1)
	}

	caminho := os.Args[1]
	parser := pgdasd.NewParser()
	parser.SetDebug(true)

	var resultado *pgdasd.Documento
	if filepath.Ext(caminho) == ".pdf" {
		doc, err := parser.ParseFile(caminho)
		if err != nil {
			log.Fatalf("Failed to parse PDF: %v", err)
		}
		resultado = doc
	} else {
		conteudo, err := os.ReadFile(caminho)
		if err != nil {
			log.Fatalf("Failed to read file: %v", err)
		}
		resultado = parser.Parse(string(conteudo))
	}

	saida, err := json.MarshalIndent(resultado, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal JSON: %v", err)
	}
	fmt.Println(string(saida))

	if len(resultado.Debug.CamposAusentes) > 0 {
		fmt.Printf("\nCampos ausentes: %v\n", resultado.Debug.CamposAusentes)
	}
}
