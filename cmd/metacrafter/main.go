// metacrafter is a thin flag-based CLI over pkg/engine: it loads rules,
// opens a record source (file, postgres, or mssql), runs a scan, and
// prints the resulting report as JSON. Flags are wired directly, with no
// CLI framework and no registration through import side effects.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/apicrafter/metacrafter-go/pkg/apperrors"
	"github.com/apicrafter/metacrafter-go/pkg/config"
	"github.com/apicrafter/metacrafter-go/pkg/connectors/file"
	"github.com/apicrafter/metacrafter-go/pkg/connectors/mssql"
	"github.com/apicrafter/metacrafter-go/pkg/connectors/postgres"
	"github.com/apicrafter/metacrafter-go/pkg/engine"
	"github.com/apicrafter/metacrafter-go/pkg/llmclassify"
	"github.com/apicrafter/metacrafter-go/pkg/match"
	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var runErr error
	switch os.Args[1] {
	case "scan":
		runErr = runScan(logger, os.Args[2:])
	case "rules":
		runErr = runRules(logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		logger.Error("metacrafter failed", zap.Error(runErr))
		os.Exit(exitCode(runErr))
	}
}

// exitCode maps an error to the CLI exit-code contract: 0 success, 2
// configuration error, 3 rule-compile error, 4 data-source error, 5
// cancelled.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 5
	}
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperrors.KindConfiguration:
			return 2
		case apperrors.KindRuleCompile:
			return 3
		case apperrors.KindDataSource, apperrors.KindProfiling:
			return 4
		}
	}
	return 1
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: metacrafter <command> [flags]

commands:
  scan   run a classification scan over a file or database table
  rules  load a rule set and print its stats`)
}

func runRules(logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	rulePath := fs.String("rules", "", "path to a rule directory (recursively loaded)")
	contexts := fs.String("contexts", "", "comma-separated contexts to keep")
	langs := fs.String("langs", "", "comma-separated langs to keep")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rulePath == "" {
		return apperrors.New(apperrors.KindConfiguration, "rules: -rules is required", false, nil)
	}

	ruleSet, _, err := loadRuleSet([]string{*rulePath}, splitCSV(*contexts), splitCSV(*langs), nil, false, logger)
	if err != nil {
		return err
	}

	stats := ruleSet.Stats()
	return printJSON(stats)
}

func runScan(logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to an EngineConfig YAML file (env vars always apply)")
	source := fs.String("source", "", "file|postgres|mssql")
	path := fs.String("path", "", "file path (source=file)")
	table := fs.String("table", "", "table name (source=postgres|mssql)")
	schema := fs.String("schema", "public", "schema name (source=postgres|mssql)")
	host := fs.String("host", "localhost", "database host (source=postgres|mssql)")
	port := fs.Int("port", 0, "database port (source=postgres|mssql; defaults to 5432/1433)")
	user := fs.String("user", "", "database user (source=postgres|mssql)")
	password := fs.String("password", "", "database password (source=postgres|mssql)")
	database := fs.String("database", "", "database name (source=postgres|mssql)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return apperrors.New(apperrors.KindConfiguration, "load config", false, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.RulePaths) == 0 {
		return apperrors.New(apperrors.KindConfiguration, "scan: at least one rule path is required (rule_paths / RULE_PATHS)", false, nil)
	}
	ruleSet, diags, err := loadRuleSet(cfg.RulePaths, cfg.Contexts, cfg.Langs, cfg.Countries, cfg.AllowPluginFunctions, logger)
	if err != nil {
		return err
	}
	for _, d := range diags {
		logger.Warn("rule diagnostic", zap.String("message", d.Message))
	}

	dbCfg := dbConnFlags{host: *host, port: *port, user: *user, password: *password, database: *database}
	rs, tableName, closeSource, err := openSource(ctx, *source, *path, *schema, *table, dbCfg)
	if err != nil {
		return err
	}
	defer closeSource()

	datePatterns, err := match.DefaultDatePatterns()
	if err != nil {
		return fmt.Errorf("build date patterns: %w", err)
	}

	opts := engine.ScanOptions{
		Contexts:            cfg.Contexts,
		Langs:               cfg.Langs,
		IgnoreImprecise:     cfg.IgnoreImprecise,
		DictShare:           cfg.DictShareThreshold,
		SampleLimit:         cfg.SampleLimit,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		DatePatterns:        datePatterns,
		Mode:                engine.Mode(cfg.Mode),
		LLMMinConfidence:    cfg.LLMMinConfidence,
		Concurrency:         cfg.Concurrency,
		Logger:              logger,
	}

	if opts.Mode != engine.ModeRules && cfg.LLM.RegistryPath != "" {
		classifier, err := buildClassifier(cfg.LLM, logger)
		if err != nil {
			return fmt.Errorf("build llm classifier: %w", err)
		}
		opts.LLM = classifier
	}

	scanReport, err := engine.Scan(ctx, tableName, rs, ruleSet, opts)
	if err != nil && scanReport == nil {
		return err
	}
	if err != nil {
		// Partial report: print what completed, then exit with the
		// cancellation/data-source code.
		logger.Warn("scan ended early", zap.Error(err))
		if printErr := printJSON(scanReport); printErr != nil {
			return printErr
		}
		return err
	}
	return printJSON(scanReport)
}

func loadRuleSet(paths []string, contexts, langs, countries []string, allowPlugins bool, logger *zap.Logger) (*rules.RuleSet, []apperrors.Diagnostic, error) {
	funcs := rules.NewFunctionRegistry()
	plugins := rules.NewPluginLoader(allowPlugins)
	compiler := rules.NewCompiler(rules.FilterConfig{Langs: langs, Contexts: contexts, Countries: countries}, funcs, plugins, logger)
	for _, path := range paths {
		if err := compiler.LoadPath(path); err != nil {
			return nil, nil, err
		}
	}
	return compiler.RuleSet(), compiler.Diagnostics(), nil
}

// dbConnFlags carries the shared connection flags for the postgres/mssql
// sources; only the connection shape differs between drivers.
type dbConnFlags struct {
	host     string
	port     int
	user     string
	password string
	database string
}

func openSource(ctx context.Context, source, path, schema, table string, db dbConnFlags) (engine.RecordSource, string, func(), error) {
	noop := func() {}
	switch source {
	case "file":
		if path == "" {
			return nil, "", noop, apperrors.New(apperrors.KindConfiguration, "scan: -path is required for source=file", false, nil)
		}
		src, err := file.Open(path)
		if err != nil {
			return nil, "", noop, apperrors.New(apperrors.KindDataSource, "open source", false, err)
		}
		return src, path, func() { src.Close() }, nil
	case "postgres":
		if table == "" || db.database == "" {
			return nil, "", noop, apperrors.New(apperrors.KindConfiguration, "scan: -table and -database are required for source=postgres", false, nil)
		}
		port := db.port
		if port == 0 {
			port = 5432
		}
		pool, err := postgres.Open(ctx, postgres.Config{
			Host: db.host, Port: port, User: db.user, Password: db.password, Database: db.database,
		})
		if err != nil {
			return nil, "", noop, apperrors.New(apperrors.KindDataSource, "open source", false, err)
		}
		src, err := postgres.NewTableSource(ctx, pool, schema, table)
		if err != nil {
			pool.Close()
			return nil, "", noop, apperrors.New(apperrors.KindDataSource, "open source", false, err)
		}
		return src, table, func() { src.Close(); pool.Close() }, nil
	case "mssql":
		if table == "" || db.database == "" {
			return nil, "", noop, apperrors.New(apperrors.KindConfiguration, "scan: -table and -database are required for source=mssql", false, nil)
		}
		port := db.port
		if port == 0 {
			port = 1433
		}
		sqlDB, err := mssql.Open(ctx, mssql.Config{
			Host: db.host, Port: port, User: db.user, Password: db.password, Database: db.database,
		})
		if err != nil {
			return nil, "", noop, apperrors.New(apperrors.KindDataSource, "open source", false, err)
		}
		src, err := mssql.NewTableSource(ctx, sqlDB, schema, table)
		if err != nil {
			sqlDB.Close()
			return nil, "", noop, apperrors.New(apperrors.KindDataSource, "open source", false, err)
		}
		return src, table, func() { src.Close(); sqlDB.Close() }, nil
	default:
		return nil, "", noop, apperrors.New(apperrors.KindConfiguration, fmt.Sprintf("scan: unknown -source %q (want file|postgres|mssql)", source), false, nil)
	}
}

func buildClassifier(cfg config.LLMConfig, logger *zap.Logger) (*llmclassify.Classifier, error) {
	return llmclassify.New(llmclassify.Config{
		RegistryPath: cfg.RegistryPath,
		EmbeddingProvider: llmclassify.ProviderConfig{
			Name:     cfg.EmbeddingProvider,
			Endpoint: cfg.EmbeddingEndpoint,
			Model:    cfg.EmbeddingModel,
			APIKey:   cfg.EmbeddingAPIKey,
		},
		ChatProvider: llmclassify.ProviderConfig{
			Name:     cfg.ChatProvider,
			Endpoint: cfg.ChatEndpoint,
			Model:    cfg.ChatModel,
			APIKey:   cfg.ChatAPIKey,
		},
		TopK:       cfg.TopK,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
