package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/joelkehle/col-analyzer/internal/casestore"
	"github.com/joelkehle/col-analyzer/internal/colanalysis"
	"github.com/joelkehle/col-analyzer/internal/httpapi"
	"github.com/joelkehle/col-analyzer/internal/pdfexport"
	"github.com/joelkehle/col-analyzer/internal/refdata"
)

func main() {
	jurisdictionsFlag := flag.String("jurisdictions", "./data/jurisdictions.csv", "path to the jurisdictions CSV")
	themesFlag := flag.String("themes", "./data/themes.csv", "path to the PIL themes CSV")
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	flag.Parse()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	tables, err := refdata.Load(*jurisdictionsFlag, *themesFlag)
	if err != nil {
		log.Fatalf("reference data: %v", err)
	}
	log.Printf("loaded %d jurisdictions, %d themes", len(tables.Jurisdictions()), len(tables.Themes()))

	caller, err := colanalysis.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatalf("llm: %v", err)
	}
	log.Printf("using model %s", caller.Model())

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "./data/case_analyses.db"
	}
	store, err := casestore.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to initialize sqlite store (%s): %v", dbPath, err)
	}
	defer store.Close()
	log.Printf("using sqlite store at %s", dbPath)

	shutdownTracing, err := setupTracing(context.Background())
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	manager := colanalysis.NewManager(tables, caller, store)
	h := httpapi.NewServer(manager, pdfexport.NewChromiumRenderer())
	log.Printf("col-server listening on %s", addr)
	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal(err)
	}
}

// setupTracing wires the OTLP trace exporter when an endpoint is
// configured; otherwise spans stay on the default no-op provider.
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", "col-analyzer")))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
