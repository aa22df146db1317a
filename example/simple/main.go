package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	pgdasd "github.com/brunomdrs/pgdasd-parser-go"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("PGDAS-D Parser - Simple Example")
		fmt.Println("")
		fmt.Println("Usage: go run example/simple/main.go <path-to-pdf>")
		fmt.Println("")
		fmt.Println("Example:")
		fmt.Println("  go run example/simple/main.go pgdasd-declaracao.pdf")
		os.Exit(1)
	}

	caminho := os.Args[1]

	if _, err := os.Stat(caminho); os.IsNotExist(err) {
		log.Fatalf("File not found: %s", caminho)
	}

	parser := pgdasd.NewParser()

	fmt.Printf("Parsing: %s\n\n", caminho)
	resultado, err := parser.ParseFile(caminho)
	if err != nil {
		log.Fatalf("Failed to parse PDF: %v", err)
	}

	saida, err := json.MarshalIndent(resultado, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal JSON: %v", err)
	}

	fmt.Println(string(saida))
}
