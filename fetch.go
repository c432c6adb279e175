package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/levigross/grequests"
	"go.uber.org/zap"

	"osumap/dotosu"
)

const (
	USER_AGENT       = "osumap/1.0 (+https://github.com/levigross/grequests)"
	REQUEST_TIMEOUT  = time.Minute
	MAX_FETCH_TRIES  = 5
	RATE_LIMIT_SLEEP = time.Minute
)

var errRateLimited = errors.New("rate limited")

// Fetcher downloads .osu files by beatmap id and keeps only the ones that
// decode.
type Fetcher struct {
	cfg      *Config
	log      *zap.SugaredLogger
	throttle *Throttle
	store    *Store
	scanID   uuid.UUID
	sleep    func(context.Context, time.Duration) error

	rateLimitedFrom atomic.Pointer[time.Time]
}

func NewFetcher(cfg *Config, log *zap.SugaredLogger, store *Store) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		log:      log,
		throttle: NewThrottle(cfg.RateLimit, cfg.MaxConcurrentRequests),
		store:    store,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rateLimited returns how long to back off, growing while the server keeps
// refusing.
func (f *Fetcher) rateLimited() time.Duration {
	lastLimit := f.rateLimitedFrom.Load()
	now := time.Now()
	f.rateLimitedFrom.CompareAndSwap(nil, &now)
	if lastLimit != nil {
		return max(RATE_LIMIT_SLEEP, time.Since(*lastLimit))
	}
	return RATE_LIMIT_SLEEP
}

func (f *Fetcher) url(id int) string {
	return strings.TrimRight(f.cfg.OsuBaseURL, "/") + "/osu/" + strconv.Itoa(id)
}

// FetchBytes downloads the raw file, retrying on rate limits and transient errors.
func (f *Fetcher) FetchBytes(ctx context.Context, id int) ([]byte, error) {
	done, err := f.throttle.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	var lastErr error
	for try := 0; try < MAX_FETCH_TRIES; try++ {
		if err := f.throttle.Wait(ctx); err != nil {
			return nil, err
		}
		f.log.Debugw("downloading", "id", id, "try", try)

		resp, err := grequests.Get(f.url(id), grequests.FromRequestOptions(&grequests.RequestOptions{
			UserAgent:      USER_AGENT,
			RequestTimeout: REQUEST_TIMEOUT,
			Context:        ctx,
			Headers:        map[string]string{"Accept": "text/plain"},
		}))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			f.log.Warnw("download failed", "id", id, zap.Error(err))
			if err := f.sleep(ctx, f.backoff(err)); err != nil {
				return nil, err
			}
			continue
		}

		data := resp.Bytes()
		status := resp.StatusCode
		resp.Close()

		switch {
		case status == http.StatusTooManyRequests || strings.Contains(string(data), "Slow down, play more."):
			cooldown := f.rateLimited()
			lastErr = errRateLimited
			f.log.Warnw("rate limited", "id", id, "cooldown", cooldown)
			if err := f.sleep(ctx, cooldown); err != nil {
				return nil, err
			}
			continue
		case status == http.StatusNotFound:
			return nil, fmt.Errorf("beatmap %d: %w", id, ErrNotFound)
		case !resp.Ok:
			return nil, fmt.Errorf("beatmap %d: unexpected status %d", id, status)
		}

		f.rateLimitedFrom.Store(nil)
		return data, nil
	}
	return nil, fmt.Errorf("beatmap %d: giving up after %d tries: %w", id, MAX_FETCH_TRIES, lastErr)
}

func (f *Fetcher) backoff(err error) time.Duration {
	if strings.Contains(err.Error(), "connection refused") {
		return f.rateLimited()
	}
	return time.Second
}

// Fetch downloads id, checks that it decodes and writes it to download_dir.
func (f *Fetcher) Fetch(ctx context.Context, id int) (string, error) {
	data, err := f.FetchBytes(ctx, id)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("beatmap %d: empty response", id)
	}
	b, err := dotosu.DecodeBytes(data, decodeOptions(f.cfg, f.log, nil)...)
	if err != nil {
		return "", fmt.Errorf("beatmap %d: %w", id, err)
	}

	if err := os.MkdirAll(f.cfg.DownloadDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d.osu", id)
	if b.Metadata.BeatmapSetID > 0 {
		name = fmt.Sprintf("%d_%d.osu", b.Metadata.BeatmapSetID, id)
	}
	path := filepath.Join(f.cfg.DownloadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// FetchAll downloads ids concurrently and returns how many were stored.
func (f *Fetcher) FetchAll(ctx context.Context, ids []int) int {
	wg := sync.WaitGroup{}
	counter := atomic.Uint32{}
	total := len(ids)

	if f.store != nil {
		scanID, err := f.store.BeginScan(ctx, f.cfg.OsuBaseURL)
		if err != nil {
			f.log.Warnw("failures will not be recorded", zap.Error(err))
		}
		f.scanID = scanID
	}

	for _, id := range ids {
		id := id
		wg.Add(1)
		Run(f.log, func() {
			defer wg.Done()
			path, err := f.Fetch(ctx, id)
			if err != nil {
				cat := FAIL_DOWNLOAD
				var pathErr *fs.PathError
				if errors.As(err, &pathErr) {
					cat = FAIL_WRITE
				}
				Fail(ctx, f.log, f.store, f.scanID, cat, strconv.Itoa(id), err.Error())
				return
			}
			counter.Add(1)
			f.log.Infow("downloaded", "id", id, "path", path, "progress", fmt.Sprintf("%d/%d", counter.Load(), total))
		}, func(p any) {
			Fail(ctx, f.log, f.store, f.scanID, FAIL_DOWNLOAD, strconv.Itoa(id), fmt.Sprint(p))
		})
	}
	wg.Wait()

	if f.store != nil && f.scanID != uuid.Nil {
		if err := f.store.FinishScan(ctx, f.scanID, int(counter.Load()), total); err != nil {
			f.log.Warnw("finish scan", zap.Error(err))
		}
	}
	return int(counter.Load())
}
