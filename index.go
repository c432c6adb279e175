package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"osumap/dotosu"
)

// IndexDir decodes every .osu file below root and upserts it into store.
// Files that cannot be read or decoded are recorded as failures of the scan.
func IndexDir(ctx context.Context, log *zap.SugaredLogger, store *Store, cfg *Config, root string) (uuid.UUID, int, int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return uuid.Nil, 0, 0, err
	}
	if !info.IsDir() {
		return uuid.Nil, 0, 0, fmt.Errorf("path is not a directory: %s", root)
	}

	scanID, err := store.BeginScan(ctx, root)
	if err != nil {
		return uuid.Nil, 0, 0, err
	}

	var paths []string
	if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			Fail(ctx, log, store, scanID, FAIL_READ, path, err.Error())
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".osu") {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return scanID, 0, 0, err
	}

	sort.Strings(paths)

	decoded := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return scanID, decoded, len(paths), err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			Fail(ctx, log, store, scanID, FAIL_READ, p, err.Error())
			continue
		}
		skipped := 0
		b, err := dotosu.DecodeBytes(data, decodeOptions(cfg, log.With("path", p), &skipped)...)
		if err != nil {
			Fail(ctx, log, store, scanID, FAIL_DECODE, p, err.Error())
			continue
		}
		sum := md5.Sum(data)
		if err := store.Upsert(ctx, scanID, p, hex.EncodeToString(sum[:]), b, skipped); err != nil {
			Fail(ctx, log, store, scanID, FAIL_WRITE, p, err.Error())
			continue
		}
		decoded++
	}

	if err := store.FinishScan(ctx, scanID, decoded, len(paths)); err != nil {
		return scanID, decoded, len(paths), err
	}
	log.Infof("decoded %d/%d .osu files", decoded, len(paths))
	return scanID, decoded, len(paths), nil
}
