// Command export snapshots the donations table to a local directory or an
// S3-compatible bucket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hingecraft/internal/adapter/repo"
	"hingecraft/internal/export"
	"hingecraft/internal/infra"
	"hingecraft/internal/service"
	"hingecraft/internal/storage"
)

// openStore is replaced in tests.
var openStore = repo.Open

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		exitWithError(err)
	}
}

// run performs one export. Every resource it opens is released before it
// returns, including on failure.
func run(args []string, stdout io.Writer) error {
	var (
		formatFlag  string
		targetFlag  string
		dirFlag     string
		timeoutFlag time.Duration
	)

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.StringVar(&formatFlag, "format", "bundle", "comma separated formats to write (json, xlsx, bundle)")
	fs.StringVar(&targetFlag, "target", "", "where to write: local or s3 (default s3 when EXPORT_S3_BUCKET is set)")
	fs.StringVar(&dirFlag, "dir", "", "local output directory (overrides EXPORT_DIR)")
	fs.DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "overall deadline for the export")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	formats, err := parseFormats(formatFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	sink, err := openSink(ctx, cfg, targetFlag, dirFlag)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open donation store: %w", err)
	}
	defer closeStore()

	snap, err := service.NewDonationService(store, logger).Export(ctx)
	if err != nil {
		return err
	}

	for _, format := range formats {
		art, err := export.Render(snap, format)
		if err != nil {
			return err
		}
		location, err := sink.Put(ctx, art.Filename, art.Data, art.ContentType)
		if err != nil {
			return err
		}
		logger.Info().
			Str("format", string(format)).
			Str("location", location).
			Int("bytes", len(art.Data)).
			Int("donations", snap.TotalDonations).
			Msg("export written")
		fmt.Fprintln(stdout, location)
	}
	return nil
}

func parseFormats(raw string) ([]export.Format, error) {
	var formats []export.Format
	seen := map[export.Format]bool{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("-format is required")
	}
	return formats, nil
}

func openSink(ctx context.Context, cfg *infra.Config, target, dir string) (storage.Sink, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		target = "local"
		if cfg.ExportS3Bucket != "" {
			target = "s3"
		}
	}
	switch target {
	case "local":
		if strings.TrimSpace(dir) == "" {
			dir = cfg.ExportDir
		}
		return storage.NewFileStore(dir)
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.ExportS3Bucket,
			Region:          cfg.ExportS3Region,
			Endpoint:        cfg.ExportS3Endpoint,
			Prefix:          cfg.ExportS3Prefix,
			AccessKeyID:     cfg.ExportS3KeyID,
			SecretAccessKey: cfg.ExportS3Secret,
		})
	}
	return nil, fmt.Errorf("unsupported -target %q", target)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
