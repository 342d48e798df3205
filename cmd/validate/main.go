// Package main is a command-line tool that validates table catalogs without
// starting the server. It exits non-zero when any catalog is invalid.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/bulk"
	"github.com/pitabwire/tabula/internal/definition"
	"github.com/pitabwire/tabula/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	dirs := flag.String("catalogs", "catalogs", "comma-separated catalog directories")
	asJSON := flag.Bool("json", false, "print validation errors as JSON")
	flag.Parse()

	handlers := bulk.NewHandlerRegistry()
	bulk.RegisterBuiltins(handlers, store.NewMemoryRowStore(), zap.NewNop())

	defs, err := definition.NewLoader().LoadAll(strings.Split(*dirs, ","))
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading catalogs: %v\n", err)
		return 1
	}

	validator, err := definition.NewValidator(handlers.Names()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	verrs := validator.Validate(defs)
	if *asJSON {
		if verrs == nil {
			verrs = []definition.VError{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(verrs)
	} else {
		for _, ve := range verrs {
			fmt.Printf("%s [%s] %s\n", ve.Path, ve.Code, ve.Message)
		}
	}
	if len(verrs) > 0 {
		fmt.Fprintf(os.Stderr, "%d validation errors in %d catalogs\n", len(verrs), len(defs))
		return 1
	}

	tables := 0
	for _, d := range defs {
		tables += len(d.Tables)
	}
	fmt.Fprintf(os.Stderr, "%d catalogs, %d tables OK\n", len(defs), tables)
	return 0
}
