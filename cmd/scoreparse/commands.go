package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"scoreparse/internal/config"
	"scoreparse/internal/csvexport"
	"scoreparse/internal/domain"
	"scoreparse/internal/logging"
	"scoreparse/internal/mapping"
	"scoreparse/internal/reasoning"
	"scoreparse/internal/repository/sqlstore"
	"scoreparse/internal/service"
	"scoreparse/internal/storage/localfs"
)

// commonFlags are shared by the commands that touch the session store.
type commonFlags struct {
	dataDir string
	owner   string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.dataDir, "data", ".scoreparse", "directory holding the session database and uploads")
	fs.StringVar(&f.owner, "owner", "local", "owner id recorded on sessions")
}

// app is a ParseService wired to local storage.
type app struct {
	svc     service.ParseService
	closeDB func() error
}

func newApp(f *commonFlags, withReasoning bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.Log)

	cfg.DB.Driver = sqlstore.DriverSQLite
	cfg.DB.SQLitePath = filepath.Join(f.dataDir, "sessions.db")
	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlstore.NewDB(&cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	blobs, err := localfs.NewBlobStore(filepath.Join(f.dataDir, "blobs"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var (
		inferrer service.MappingInferrer
		enricher service.BatchEnricher
	)
	if withReasoning {
		client, err := reasoning.NewClient(&cfg.Reasoning)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("reasoning client: %w", err)
		}
		inferrer = mapping.NewInferrer(client, &cfg.Reasoning)
		analyzer := service.NewRecordAnalyzer(client, &cfg.Enrich, cfg.Reasoning.FallbackModel)
		enricher = service.NewBatchEnricher(analyzer, cfg.Enrich.MaxConcurrency)
	}

	svc := service.NewParseService(sqlstore.NewParseSessionRepo(db), blobs, inferrer, enricher, cfg.Session.TTL)
	return &app{svc: svc, closeDB: db.Close}, nil
}

func runPreview(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("preview takes exactly one file")
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	a, err := newApp(&common, true)
	if err != nil {
		return err
	}
	defer func() { _ = a.closeDB() }()

	result, err := a.svc.Preview(ctx, &service.PreviewInput{
		OwnerID:  common.owner,
		FileName: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		return err
	}
	return writeJSON(stdout, result)
}

func runConfirm(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("confirm", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	overridePath := fs.String("override", "", "YAML or JSON mapping merged onto the previewed one")
	enrich := fs.Bool("enrich", false, "generate per-record analysis")
	concurrency := fs.Int("concurrency", 0, "max in-flight enrichment calls (0 uses the configured default)")
	examplePath := fs.String("example", "", "text file whose analysis style enrichment should follow")
	format := fs.String("format", "json", "output format: json or csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("confirm takes exactly one session id")
	}

	var override mapping.Plan
	if *overridePath != "" {
		p, err := loadPlan(*overridePath)
		if err != nil {
			return err
		}
		override = p
	}

	var example string
	if *examplePath != "" {
		raw, err := os.ReadFile(*examplePath)
		if err != nil {
			return err
		}
		example = string(raw)
	}

	a, err := newApp(&common, *enrich)
	if err != nil {
		return err
	}
	defer func() { _ = a.closeDB() }()

	result, err := a.svc.Confirm(ctx, &service.ConfirmInput{
		OwnerID:        common.owner,
		SessionID:      fs.Arg(0),
		Override:       override,
		Enrich:         *enrich,
		MaxConcurrency: *concurrency,
		Example:        example,
	})
	if err != nil {
		return err
	}

	if *format == "csv" {
		if *enrich {
			return writeEnrichedCSV(stdout, result.Enriched)
		}
		return writeRecordsCSV(stdout, result.Records)
	}
	return writeJSON(stdout, result)
}

func runRecords(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("records", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	entity := fs.String("entity", "", "exact entity name to look up")
	keyword := fs.String("q", "", "case-insensitive name keyword")
	format := fs.String("format", "json", "output format: json or csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("records takes exactly one session id")
	}

	a, err := newApp(&common, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.closeDB() }()

	records, err := a.svc.ListRecords(ctx, common.owner, fs.Arg(0), service.RecordQuery{
		Entity:  *entity,
		Keyword: *keyword,
	})
	if err != nil {
		return err
	}
	if *format == "csv" {
		return writeRecordsCSV(stdout, records)
	}
	return writeJSON(stdout, records)
}

func runExecute(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("execute", flag.ContinueOnError)
	mappingPath := fs.String("mapping", "", "YAML or JSON mapping plan (required)")
	format := fs.String("format", "json", "output format: json or csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *mappingPath == "" {
		return fmt.Errorf("execute takes -mapping and exactly one file")
	}

	plan, err := loadPlan(*mappingPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	records, err := mapping.Execute(data, filepath.Base(fs.Arg(0)), plan)
	if err != nil {
		return err
	}
	if *format == "csv" {
		return writeRecordsCSV(stdout, records)
	}
	return writeJSON(stdout, records)
}

func runPurge(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	retention := fs.Duration("retention", 24*time.Hour, "keep sessions this long past expiry")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&common, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.closeDB() }()

	n, err := a.svc.PurgeExpired(ctx, *retention)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "purged %d sessions\n", n)
	return err
}

// loadPlan reads a mapping plan from YAML (JSON is accepted as a subset).
func loadPlan(path string) (mapping.Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var plan mapping.Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrMalformedMapping, err)
	}
	if plan == nil {
		plan = mapping.Plan{}
	}
	return plan, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeRecordsCSV(w io.Writer, records []domain.NormalizedRecord) error {
	cw := csvexport.NewWriter(w, false)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteRecords(records); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeEnrichedCSV(w io.Writer, records []domain.EnrichedRecord) error {
	cw := csvexport.NewWriter(w, true)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteEnriched(records); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
