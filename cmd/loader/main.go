package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"mysql-loader/internal/config"
	"mysql-loader/internal/driver"
	"mysql-loader/internal/loader"
	"mysql-loader/internal/storage"
	"mysql-loader/internal/worker"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// Custom Usage/Help Message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "MySQL Loader %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  mysql-loader -table <name> [flags] <key>...\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_DRIVER           mysql (default) or postgres\n")
		fmt.Fprintf(os.Stderr, "  DATABASE_DSN        Database connection string (user:pass@tcp(host:3306)/db)\n")
		fmt.Fprintf(os.Stderr, "  STORAGE_TYPE        local (default) or s3\n")
		fmt.Fprintf(os.Stderr, "  LOCAL_STORAGE_PATH  Base directory for local keys\n")
		fmt.Fprintf(os.Stderr, "  S3_BUCKET           Source bucket for s3 keys\n")
		fmt.Fprintf(os.Stderr, "  FLOAT_NULL_TYPE     Type bound for non-finite floats (REAL)\n")
		fmt.Fprintf(os.Stderr, "  DOUBLE_NULL_TYPE    Type bound for non-finite doubles (DOUBLE)\n")
		fmt.Fprintf(os.Stderr, "  BEFORE_LOAD         SQL run before each file is loaded\n")
		fmt.Fprintf(os.Stderr, "  AFTER_LOAD          SQL run after each file is loaded\n")
		fmt.Fprintf(os.Stderr, "  DEFAULT_TIMEZONE    Zone for timestamps without an offset (UTC)\n")
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  export DATABASE_DSN=\"user:pass@tcp(localhost:3306)/db\"\n")
		fmt.Fprintf(os.Stderr, "  mysql-loader -table metrics data/metrics.csv.gz data/more.jsonl\n")
	}

	table := flag.String("table", "", "Target table (optionally schema.table)")
	format := flag.String("format", "", "Input format: csv, json or excel (default: from file extension)")
	upsert := flag.Bool("upsert", false, "Update rows that collide on a unique key")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("MySQL Loader %s\n", version)
		os.Exit(0)
	}
	if *table == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, *table, *format, *upsert, flag.Args()))
}

func run(ctx context.Context, cfg *config.Config, table, format string, upsert bool, keys []string) int {
	// Initialize Driver
	dbDriver, err := driver.New(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("Failed to create driver", "error", err)
		return 1
	}
	defer dbDriver.Close()

	if err := dbDriver.Ping(ctx); err != nil {
		slog.Error("Failed to connect to database", "driver", dbDriver.Name(), "error", err)
		return 1
	}
	slog.Info("Connected to database", "driver", dbDriver.Name())

	// Initialize Storage
	var store storage.Provider
	if cfg.StorageType == "s3" {
		client := storage.NewS3Client(cfg.AWSRegion, cfg.S3Endpoint, cfg.S3PathStyle)
		store = storage.NewS3Provider(client, cfg.S3Bucket)
		slog.Info("Using S3 storage", "bucket", cfg.S3Bucket)
	} else {
		store = storage.NewLocalProvider(cfg.LocalStoragePath)
		slog.Info("Using local storage", "path", cfg.LocalStoragePath)
	}

	ld := loader.NewLoader(dbDriver, cfg.BatchWeight, cfg.LoaderOptions()...)
	pool := worker.NewPool(cfg.WorkerCount, cfg.MaxDBConcurrency, dbDriver, store, cfg.BatchOptions(), ld)
	pool.Start()
	defer pool.Stop()

	jobs := make([]*worker.LoadJob, 0, len(keys))
	for _, key := range keys {
		job := worker.NewLoadJob(key, table, format, upsert, cfg.DefaultTimeout)
		if err := pool.Enqueue(ctx, job); err != nil {
			job.Cancel()
			slog.Error("Failed to queue job", "key", key, "error", err)
			break
		}
		jobs = append(jobs, job)

		// cancel queued and running jobs on interrupt
		go func() {
			select {
			case <-ctx.Done():
				job.Cancel()
			case <-job.Ctx.Done():
			}
		}()
	}

	failed := len(keys) - len(jobs)
	var rows int64
	for _, job := range jobs {
		if err := job.Wait(); err != nil {
			failed++
			continue
		}
		rows += job.Stats.RowsLoaded
	}

	slog.Info("Load finished", "table", table, "files", len(keys), "failed", failed, "rows", rows)
	if failed > 0 {
		return 1
	}
	return 0
}
