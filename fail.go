package main

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Failure categories.
const (
	FAIL_DECODE   = "decode"
	FAIL_READ     = "read"
	FAIL_DOWNLOAD = "download"
	FAIL_WRITE    = "write"
)

// Fail logs a failed item and records it against the scan. Recording is best
// effort; a broken store must not stop the scan.
func Fail(ctx context.Context, log *zap.SugaredLogger, store *Store, scanID uuid.UUID, cat, ref, reason string) {
	log.Warnw("fail", "category", cat, "ref", ref, "reason", reason)
	if store == nil {
		return
	}
	if err := store.recordFailure(ctx, scanID, cat, ref, reason); err != nil {
		log.Errorw("record failure", "ref", ref, zap.Error(err))
	}
}

func (s *Store) recordFailure(ctx context.Context, scanID uuid.UUID, cat, ref, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failures (scan_id, category, ref, reason, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		scanID.String(), cat, ref, reason)
	return err
}
