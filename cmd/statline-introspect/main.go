package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	enginepostgres "github.com/statline/statline/internal/engine/postgres"
	"github.com/statline/statline/internal/introspect"
)

// statline-introspect generates dataset spec stubs by introspecting the
// store's information schema, one JSON file per table under
// <out>/<schema>/<table>.json. Descriptions are left empty for manual
// annotation before the files go into the live registry dir.
func main() {
	dsn := flag.String("dsn", envOr("STATLINE_STORE_DSN", ""), "store connection string (env: STATLINE_STORE_DSN)")
	schemas := flag.String("schemas", "marts_baseball,staging_baseball", "comma-separated schemas to introspect")
	out := flag.String("out", "dataset_registry.generated", "directory to write per-table spec files")
	timeout := flag.Duration("timeout", 30*time.Second, "overall introspection timeout")
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "a store dsn is required (-dsn or STATLINE_STORE_DSN)")
		os.Exit(2)
	}

	schemaList := make([]string, 0)
	for _, schema := range strings.Split(*schemas, ",") {
		if schema = strings.TrimSpace(schema); schema != "" {
			schemaList = append(schemaList, schema)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := enginepostgres.Open(ctx, enginepostgres.DBConfig{DSN: *dsn})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	written, err := introspect.New(db).Run(ctx, schemaList, *out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "introspect: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d dataset stubs under %s/<schema>/<table>.json\n", written, *out)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
