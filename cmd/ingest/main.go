// Command ingest OCRs local PDF files into the configured document store.
//
//	ingest [-async] file.pdf...
//
// One JSON line is printed per file. The exit status is 1 if any file fails.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/gogotex/ocrsearch/internal/cache"
	"github.com/gogotex/ocrsearch/internal/config"
	"github.com/gogotex/ocrsearch/internal/database"
	"github.com/gogotex/ocrsearch/internal/document"
	"github.com/gogotex/ocrsearch/internal/ingest"
	"github.com/gogotex/ocrsearch/internal/ocr/tesseract"
	"github.com/gogotex/ocrsearch/internal/raster/fitz"
	"github.com/gogotex/ocrsearch/internal/storage"
	"github.com/gogotex/ocrsearch/pkg/logger"
)

// searchCachePrefix is the key prefix the server's search cache uses.
const searchCachePrefix = "ocrsearch:search:"

// line is the per-file output record.
type line struct {
	File   string         `json:"file"`
	Result *ingest.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	Code   string         `json:"code,omitempty"`
}

func main() {
	async := flag.Bool("async", false, "accept every file first, then process them concurrently")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-async] file.pdf...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger.Init(os.Getenv("LOG_LEVEL"))
	// logs go to stderr so stdout stays machine-readable
	logger.SetOutput(os.Stderr)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.OpenStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer store.Close(context.Background())

	files, err := storage.NewLocalStore(cfg.Data.DocumentsDir, cfg.Data.PagesDir)
	if err != nil {
		logger.Fatalf("failed to prepare data directories: %v", err)
	}
	archive, err := storage.NewArchive(ctx, cfg.Archive)
	if err != nil {
		logger.Fatalf("failed to configure %s archive: %v", cfg.Archive.Backend, err)
	}

	opts := ingest.Options{Concurrency: int64(cfg.Ingest.Concurrency), Archive: archive}
	if cfg.Redis.Host != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		opts.OnCommit = invalidateOnCommit(cache.NewRedisCache(rdb, searchCachePrefix, cfg.Redis.CacheTTL))
	}

	p := ingest.New(store, files,
		fitz.New(cfg.Raster.RegularScale, cfg.Raster.ZoomScale, cfg.Raster.MaxPages, cfg.Raster.Validate),
		tesseract.New(cfg.OCR.Language, cfg.OCR.TessdataPrefix),
		opts,
	)

	failed := run(ctx, p, flag.Args(), *async, os.Stdout)
	if failed > 0 {
		store.Close(context.Background())
		os.Exit(1)
	}
}

// invalidateOnCommit bumps the server's search cache generation after each
// committed page batch. Failures are logged only.
func invalidateOnCommit(c *cache.RedisCache) func(context.Context) {
	return func(ctx context.Context) {
		if err := c.Invalidate(ctx); err != nil {
			logger.Warnf("search cache invalidation failed: %v", err)
		}
	}
}

// run ingests paths and writes one JSON line per path to out. It returns the
// number of failures.
func run(ctx context.Context, p *ingest.Pipeline, paths []string, async bool, out io.Writer) int {
	enc := json.NewEncoder(out)
	failed := 0
	emit := func(l line) {
		if l.Error != "" {
			failed++
		}
		if err := enc.Encode(l); err != nil {
			logger.Errorf("write result: %v", err)
		}
	}

	if !async {
		for _, path := range paths {
			if ctx.Err() != nil {
				emit(line{File: path, Error: ctx.Err().Error()})
				continue
			}
			res, err := ingestFile(ctx, path, func(name string, r io.Reader) (*ingest.Result, error) {
				return p.Ingest(ctx, name, r)
			})
			emit(toLine(path, res, err))
		}
		return failed
	}

	docs := make([]*document.Document, len(paths))
	for i, path := range paths {
		_, err := ingestFile(ctx, path, func(name string, r io.Reader) (*ingest.Result, error) {
			doc, err := p.Accept(ctx, name, r)
			docs[i] = doc
			return nil, err
		})
		if err != nil {
			emit(toLine(path, nil, err))
			continue
		}
		p.Submit(docs[i])
	}
	p.Wait()
	for i, path := range paths {
		if docs[i] == nil {
			continue
		}
		job, _ := p.Tracker().Get(docs[i].ID)
		if job.State == ingest.StateSucceeded {
			emit(line{File: path, Result: job.Result})
			continue
		}
		emit(line{File: path, Error: "ingestion failed", Code: job.Error})
	}
	return failed
}

func ingestFile(ctx context.Context, path string, fn func(name string, r io.Reader) (*ingest.Result, error)) (*ingest.Result, error) {
	if !storage.AllowedFile(path) {
		return nil, fmt.Errorf("%s: only PDF files are allowed", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fn(filepath.Base(path), f)
}

func toLine(path string, res *ingest.Result, err error) line {
	if err == nil {
		return line{File: path, Result: res}
	}
	l := line{File: path, Error: err.Error()}
	if stage := ingest.StageOf(err); stage != "" {
		l.Code = string(stage)
	}
	return l
}
