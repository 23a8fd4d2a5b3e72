package main

import (
	"log"

	tool "github.com/charmops/charmops-backend/internal/tools/housekeeping"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
