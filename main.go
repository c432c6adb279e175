package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"osumap/dotosu"
)

const usage = `usage: osumap <command> [flags] [args]

commands:
  decode <file.osu>...   print a JSON summary of each beatmap
  fmt <file.osu>         re-encode a beatmap in canonical form
  index [dir]            decode a songs directory into the sqlite index
  fetch <beatmap id>...  download .osu files and keep the ones that decode
  serve                  run the HTTP service
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	cfg, args, err := Setup(cmd, os.Args[2:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := NewLogger(cfg.Debug)
	defer func() { _ = log.Sync() }()

	if cfg.Charset != "" {
		if _, err := dotosu.CharsetByName(cfg.Charset); err != nil {
			log.Fatalw("invalid charset", "charset", cfg.Charset, zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "decode":
		err = runDecode(cfg, log, args, os.Stdout)
	case "fmt":
		err = runFmt(cfg, log, args, os.Stdout)
	case "index":
		err = runIndex(ctx, cfg, log, args)
	case "fetch":
		err = runFetch(ctx, cfg, log, args)
	case "serve":
		err = runServe(ctx, cfg, log)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Errorw(cmd+" failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// decodeOptions builds the decoder options shared by every command. The
// charset has already been validated in main.
func decodeOptions(cfg *Config, log *zap.SugaredLogger, skipped *int) []dotosu.Option {
	opts := []dotosu.Option{dotosu.WithLogger(log.Desugar())}
	if cfg.Charset != "" {
		if enc, err := dotosu.CharsetByName(cfg.Charset); err == nil {
			opts = append(opts, dotosu.WithReaderOptions(dotosu.WithCharset(enc)))
		}
	}
	if skipped != nil {
		opts = append(opts, dotosu.WithSkippedCount(skipped))
	}
	return opts
}

func runDecode(cfg *Config, log *zap.SugaredLogger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("decode: no files given")
	}
	summaries := make([]Summary, 0, len(args))
	for _, path := range args {
		skipped := 0
		b, err := dotosu.DecodeFile(path, decodeOptions(cfg, log.With("path", path), &skipped)...)
		if err != nil {
			return err
		}
		summaries = append(summaries, Summarize(b, skipped))
	}

	var v any = summaries
	if len(summaries) == 1 {
		v = summaries[0]
	}
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func runFmt(cfg *Config, log *zap.SugaredLogger, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("fmt: expected exactly one file")
	}
	b, err := dotosu.DecodeFile(args[0], decodeOptions(cfg, log.With("path", args[0]), nil)...)
	if err != nil {
		return err
	}
	if cfg.Output != "" {
		return dotosu.EncodeFile(cfg.Output, b)
	}
	return dotosu.Encode(out, b)
}

func runIndex(ctx context.Context, cfg *Config, log *zap.SugaredLogger, args []string) error {
	root := cfg.SongsDir
	if len(args) > 0 {
		root = args[0]
	}
	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	scanID, decoded, total, err := IndexDir(ctx, log, store, cfg, root)
	if err != nil {
		return err
	}
	failures, err := store.Failures(ctx, scanID)
	if err != nil {
		return err
	}
	log.Infow("index finished", "scan", scanID, "decoded", decoded, "total", total, "failures", len(failures))
	return nil
}

func runFetch(ctx context.Context, cfg *Config, log *zap.SugaredLogger, args []string) error {
	if len(args) == 0 {
		return errors.New("fetch: no beatmap ids given")
	}
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("fetch: bad beatmap id %q", a)
		}
		ids = append(ids, id)
	}

	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		log.Warnw("failures will only be logged", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	f := NewFetcher(cfg, log, store)
	defer f.throttle.Stop()
	n := f.FetchAll(ctx, ids)
	log.Infof("fetched %d/%d beatmaps", n, len(ids))
	if n == 0 {
		return errors.New("fetch: nothing downloaded")
	}
	return nil
}

func runServe(ctx context.Context, cfg *Config, log *zap.SugaredLogger) error {
	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var cache FormatCache
	if cfg.RedisURL != "" {
		rc := NewRedisCache(cfg)
		if err := rc.Init(ctx); err != nil {
			return err
		}
		defer rc.Close()
		cache = rc
		log.Infow("format cache enabled", "redis", cfg.RedisURL)
	}

	return NewServer(cfg, log, store, cache).Serve(ctx)
}
