package main

import (
	"compress/gzip"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Creates the metrics table and writes a gzipped sample file for it, with a
// sprinkling of NaN and Infinity values the loader has to turn into NULLs.
func main() {
	rows := flag.Int("rows", 1000000, "Rows to generate")
	out := flag.String("out", "imports/metrics.csv.gz", "Output file")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/my_app?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	// Wait for DB to be ready
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Info("Waiting for database...", "attempt", i+1)
		time.Sleep(1 * time.Second)
	}

	slog.Info("Connected to MySQL. Creating tables...")

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metrics (
			id BIGINT PRIMARY KEY,
			sensor VARCHAR(32),
			score DOUBLE,
			ratio FLOAT,
			recorded_at TIMESTAMP NULL
		)
	`)
	if err != nil {
		panic(err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		panic(err)
	}
	f, err := os.Create(*out)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	w := csv.NewWriter(zw)
	if err := w.Write([]string{"id", "sensor", "score", "ratio", "recorded_at"}); err != nil {
		panic(err)
	}

	start := time.Now()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= *rows; i++ {
		score := float64(i) * 0.1
		ratio := float64(i%1000) / 1000
		switch {
		case i%97 == 0:
			score = math.NaN()
		case i%89 == 0:
			score = math.Inf(1)
		case i%83 == 0:
			ratio = math.Inf(-1)
		}

		err := w.Write([]string{
			strconv.Itoa(i),
			fmt.Sprintf("sensor-%d", i%50),
			strconv.FormatFloat(score, 'g', -1, 64),
			strconv.FormatFloat(ratio, 'g', -1, 32),
			base.Add(time.Duration(i) * time.Second).Format("2006-01-02 15:04:05"),
		})
		if err != nil {
			panic(err)
		}

		if i%100000 == 0 {
			fmt.Printf("\rWriting rows: %d/%d", i, *rows)
		}
	}
	fmt.Println()

	w.Flush()
	if err := w.Error(); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}

	slog.Info("Sample file written", "path", *out, "rows", *rows, "duration", time.Since(start))
}
