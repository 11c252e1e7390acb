// File path: cmd/faqcheck/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/helpmate-bot/helpmate/internal/faq"
)

func main() {
	jsonPath := flag.String("json", filepath.Join("data", "faq.json"), "path to the FAQ json corpus")
	csvPath := flag.String("csv", filepath.Join("data", "faq.csv"), "path to the FAQ csv fallback")
	flag.Parse()

	store := faq.NewStore(*jsonPath, *csvPath)
	pairs, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load error:", err)
		os.Exit(1)
	}
	violations := faq.Validate(pairs)
	if len(violations) == 0 {
		fmt.Printf("ok: %d pairs\n", len(pairs))
		return
	}
	for _, v := range violations {
		fmt.Fprintln(os.Stderr, v.String())
	}
	fmt.Fprintf(os.Stderr, "%d violations in %d pairs\n", len(violations), len(pairs))
	os.Exit(1)
}
