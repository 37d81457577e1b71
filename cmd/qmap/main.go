// qmap previews how a query is rewritten by a YAML mapping file.
//
// Usage:
//
//	qmap -mappings mappings.yaml -source CustomerDTO -query '$filter=Name eq 1&$orderby=Id'
//	qmap -mappings mappings.yaml -source CustomerDTO -query '$filter=Name eq 1' -validate
//	qmap -clause "contains(Name,'x')" -dump
package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/CaliLuke/go-querymap/clause"
	"github.com/CaliLuke/go-querymap/mapper"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mappingsFile := fs.String("mappings", "", "Path to YAML mapping file")
	source := fs.String("source", "", "Source type name (default: the only mapping in the file)")
	query := fs.String("query", "", "URL query string with $-prefixed system query options")
	raw := fs.String("clause", "", "Single $filter/$orderby clause to tokenize or rewrite")
	validate := fs.Bool("validate", false, "Check the query against the file's validation settings first")
	dump := fs.Bool("dump", false, "Print the tokens of -clause")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "qmap %s\n", version)
		return 0
	}

	if *dump {
		if *raw == "" {
			fmt.Fprintln(stderr, "error: -dump requires -clause")
			return 1
		}
		toks, err := clause.Tokenize(*raw)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		spew.Fdump(stdout, toks)
		return 0
	}

	if *mappingsFile == "" {
		fmt.Fprintln(stderr, "error: -mappings flag is required")
		fs.Usage()
		return 1
	}

	mf, err := mapper.LoadMappingFile(*mappingsFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	tm, err := pickMapping(mf, *source)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if *raw != "" {
		out, err := clause.Rewrite(*raw, tm.ClauseMap())
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, out)
		return 0
	}

	values, err := url.ParseQuery(*query)
	if err != nil {
		fmt.Fprintf(stderr, "error parsing -query: %v\n", err)
		return 1
	}
	clauses := mapper.ParseClauseSet(values)

	if *validate && mf.Validation != nil {
		if err := (mapper.ValidateOnly{Settings: *mf.Validation}).Validate(clauses); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}

	table, err := mapper.RewriteClauses(clauses, tm.ClauseMap())
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	for _, k := range table.Keys() {
		fmt.Fprintf(stdout, "%s=%s\n", k, table[k])
	}
	return 0
}

func pickMapping(mf *mapper.MappingFile, source string) (*mapper.TypeMapping, error) {
	if source != "" {
		tm, ok := mf.Find(source)
		if !ok {
			return nil, fmt.Errorf("no mapping declared for source %q", source)
		}
		return tm, nil
	}
	if len(mf.Mappings) != 1 {
		return nil, fmt.Errorf("-source is required when the file declares %d mappings", len(mf.Mappings))
	}
	return &mf.Mappings[0], nil
}
