// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuGH/playercount/internal/persistence/sqlite"
)

// CatalogState is the view of catalog.Provider a checker needs.
type CatalogState interface {
	LoadedAt() time.Time
	LastError() error
}

// CatalogChecker reports whether a catalog snapshot is being served.
type CatalogChecker struct {
	state CatalogState
}

// NewCatalogChecker creates a checker for the catalog provider.
func NewCatalogChecker(state CatalogState) *CatalogChecker {
	return &CatalogChecker{state: state}
}

func (c *CatalogChecker) Name() string { return "catalog" }

// Check is unhealthy until one load succeeded and degraded while the last
// reload failed and an older snapshot is still served.
func (c *CatalogChecker) Check(context.Context) CheckResult {
	loadedAt := c.state.LoadedAt()
	lastErr := c.state.LastError()

	if loadedAt.IsZero() {
		res := CheckResult{Status: StatusUnhealthy, Message: "catalog never loaded"}
		if lastErr != nil {
			res.Error = lastErr.Error()
		}
		return res
	}
	if lastErr != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   lastErr.Error(),
			Message: "serving snapshot from " + loadedAt.UTC().Format(time.RFC3339),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "loaded " + loadedAt.UTC().Format(time.RFC3339)}
}

// AuditChecker verifies that the audit backend answers. Audit failures
// never block aggregation, so a failing backend is degraded, not unhealthy.
type AuditChecker struct {
	backend string
	probe   func(ctx context.Context) (string, error)
}

func (c *AuditChecker) Name() string { return "audit_" + c.backend }

func (c *AuditChecker) Check(ctx context.Context) CheckResult {
	msg, err := c.probe(ctx)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Message: "audit log unavailable"}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}

// NewAuditLogChecker probes any store through a load function returning
// the number of entries.
func NewAuditLogChecker(backend string, load func(ctx context.Context) (int, error)) *AuditChecker {
	return &AuditChecker{
		backend: backend,
		probe: func(ctx context.Context) (string, error) {
			n, err := load(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d entries", n), nil
		},
	}
}

// NewSQLiteChecker runs PRAGMA quick_check against the audit database.
func NewSQLiteChecker(db *sql.DB) *AuditChecker {
	return &AuditChecker{
		backend: "sqlite",
		probe: func(ctx context.Context) (string, error) {
			issues, err := sqlite.QuickCheck(ctx, db)
			if err != nil {
				return "", err
			}
			if len(issues) > 0 {
				return "", fmt.Errorf("integrity check failed: %s", strings.Join(issues, "; "))
			}
			return "integrity ok", nil
		},
	}
}

// NewRedisChecker pings the audit redis server.
func NewRedisChecker(client *redis.Client) *AuditChecker {
	return &AuditChecker{
		backend: "redis",
		probe: func(ctx context.Context) (string, error) {
			if err := client.Ping(ctx).Err(); err != nil {
				return "", err
			}
			return "ping ok", nil
		},
	}
}
