package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/jacksonlee411/assetdesk/internal/backup"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/modules/asset/infrastructure/persistence"
	"github.com/jacksonlee411/assetdesk/modules/asset/services"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

const usage = "usage: dbtool <migrate|migrate-status|seed-types|backup|restore|migrate-gst-keys|asset-smoke> [args]"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fatal(err)
	}
	if len(os.Args) < 2 {
		fatalf(usage)
	}
	logger.Init(logger.ConfigFromEnv())

	switch os.Args[1] {
	case "migrate":
		migrate(os.Args[2:])
	case "migrate-status":
		migrateStatus(os.Args[2:])
	case "seed-types":
		seedTypes(os.Args[2:])
	case "backup":
		runBackup(os.Args[2:])
	case "restore":
		runRestore(os.Args[2:])
	case "migrate-gst-keys":
		migrateGSTKeys(os.Args[2:])
	case "asset-smoke":
		assetSmoke(os.Args[2:])
	default:
		fatalf("unknown subcommand: %s\n%s", os.Args[1], usage)
	}
}

type commonFlags struct {
	url     string
	timeout time.Duration
}

func newFlagSet(name string, c *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&c.url, "url", os.Getenv("DATABASE_URL"), "postgres connection string (default $DATABASE_URL)")
	fs.DurationVar(&c.timeout, "timeout", 5*time.Minute, "overall deadline")
	return fs
}

func parse(fs *flag.FlagSet, c *commonFlags, args []string) (context.Context, context.CancelFunc) {
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if c.url == "" {
		fatalf("missing --url")
	}
	return context.WithTimeout(context.Background(), c.timeout)
}

func openPool(ctx context.Context, url string) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		fatal(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		fatal(err)
	}
	return pool
}

func migrate(args []string) {
	var c commonFlags
	fs := newFlagSet("migrate", &c)
	ctx, cancel := parse(fs, &c, args)
	defer cancel()

	if err := persistence.ApplyMigrations(ctx, c.url); err != nil {
		fatal(err)
	}
	version, err := persistence.MigrationStatus(ctx, c.url)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("[migrate] OK version=%d\n", version)
}

func migrateStatus(args []string) {
	var c commonFlags
	fs := newFlagSet("migrate-status", &c)
	ctx, cancel := parse(fs, &c, args)
	defer cancel()

	version, err := persistence.MigrationStatus(ctx, c.url)
	if err != nil {
		fatal(err)
	}
	files, err := persistence.MigrationFiles()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("[migrate-status] version=%d embedded=%d\n", version, len(files))
}

// seedTypes upserts the built-in asset types. Existing types are overwritten.
func seedTypes(args []string) {
	var c commonFlags
	fs := newFlagSet("seed-types", &c)
	ctx, cancel := parse(fs, &c, args)
	defer cancel()

	pool := openPool(ctx, c.url)
	defer pool.Close()

	registry := persistence.NewTypeRegistryPGStore(pool)
	seeded := fieldmeta.SeedAssetTypes()
	for _, t := range seeded {
		if err := registry.UpsertType(ctx, t); err != nil {
			fatalf("seed %s: %v", t.Name, err)
		}
	}
	fmt.Printf("[seed-types] OK types=%d\n", len(seeded))
}

func runBackup(args []string) {
	var c commonFlags
	fs := newFlagSet("backup", &c)
	var dir string
	fs.StringVar(&dir, "dir", getenvDefault("BACKUP_DIR", "backups"), "backup directory")
	ctx, cancel := parse(fs, &c, args)
	defer cancel()

	pool := openPool(ctx, c.url)
	defer pool.Close()

	svc := backup.NewService(persistence.NewAssetPGStore(pool), dir, backup.WithLogger(logger.Default()))
	res, err := svc.Run(ctx)
	if err != nil {
		fatal(err)
	}
	printJSON(res)
}

func runRestore(args []string) {
	var c commonFlags
	fs := newFlagSet("restore", &c)
	var dir, file string
	fs.StringVar(&dir, "dir", getenvDefault("BACKUP_DIR", "backups"), "backup directory")
	fs.StringVar(&file, "file", "", "snapshot path (default: latest in --dir)")
	ctx, cancel := parse(fs, &c, args)
	defer cancel()

	pool := openPool(ctx, c.url)
	defer pool.Close()

	assets := persistence.NewAssetPGStore(pool)
	svc := backup.NewService(assets, dir, backup.WithRestorer(assets), backup.WithLogger(logger.Default()))
	n, err := svc.Restore(ctx, file)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("[restore] OK assets=%d\n", n)
}

func migrateGSTKeys(args []string) {
	var c commonFlags
	fs := newFlagSet("migrate-gst-keys", &c)
	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "count records that would change without writing")
	ctx, cancel := parse(fs, &c, args)
	defer cancel()

	pool := openPool(ctx, c.url)
	defer pool.Close()

	report, err := services.MigrateStoredKeys(ctx, persistence.NewAssetPGStore(pool), dryRun, logger.Default())
	if err != nil {
		fatal(err)
	}
	printJSON(report)
}

// assetSmoke round-trips one record through the Postgres asset store.
func assetSmoke(args []string) {
	var c commonFlags
	fs := newFlagSet("asset-smoke", &c)
	ctx, cancel := parse(fs, &c, args)
	defer cancel()

	pool := openPool(ctx, c.url)
	defer pool.Close()

	store := persistence.NewAssetPGStore(pool)
	id, err := store.Insert(ctx, types.Record{
		"category":  types.Text("Smoke"),
		"serial_no": types.Text("SMOKE-" + time.Now().UTC().Format("20060102150405")),
		"amount":    types.NumberFromInt(1000),
	})
	if err != nil {
		fatal(err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		fatal(err)
	}
	if got.Data.Text("category") != "Smoke" {
		fatalf("unexpected category %q", got.Data.Text("category"))
	}
	n, err := store.Delete(ctx, []string{id})
	if err != nil {
		fatal(err)
	}
	if n != 1 {
		fatalf("expected 1 deleted, got %d", n)
	}
	fmt.Println("[asset-smoke] OK")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	if err == nil {
		os.Exit(1)
	}
	fatalf("%v", err)
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
