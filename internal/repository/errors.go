// Package repository implements the MySQL stores behind the auth core's
// store interfaces. Failure classification lives here: a missing row
// surfaces as sql.ErrNoRows, everything else (connection loss, timeouts,
// cancelled contexts) wraps auth.ErrTransient so the core and handlers can
// treat it as retry-safe without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hartono/bizman-backend/internal/auth"
)

const (
	retryAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

// classify maps a driver error into the core taxonomy. sql.ErrNoRows passes
// through untouched: "not found" is an answer, not an outage.
func classify(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if errors.Is(err, auth.ErrInvalidSession) {
		return err
	}
	return fmt.Errorf("%w: %v", auth.ErrTransient, err)
}

// withRetry runs fn up to retryAttempts times with a doubling backoff.
// Only read paths and idempotent writes go through here; the refresh-token
// rotation never retries, because a retried compare-and-swap after a lost
// response could misreport a successful rotation as a replay.
func withRetry(ctx context.Context, fn func() error) error {
	backoff := retryBackoff
	var err error
	for i := 0; i < retryAttempts; i++ {
		err = fn()
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			return err
		}
		select {
		case <-ctx.Done():
			return classify(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return classify(err)
}
