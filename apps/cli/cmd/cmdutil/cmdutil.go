// Package cmdutil opens the resources shared by the CLI subcommands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformauth "github.com/bizscreen/console/platform/go/auth"
	platformlogging "github.com/bizscreen/console/platform/go/logging"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/requesttrace"
	"github.com/bizscreen/console/platform/go/tenant"
)

// Operator is the identity CLI actions are attributed to.
var Operator = &platformauth.UserCredentials{ID: "cli", Role: platformauth.RolePlatformAdmin, IsPlatformAdmin: true}

// DatabaseURL reads the inherited --database-url flag.
func DatabaseURL(cmd *cobra.Command) (string, error) {
	url, _ := cmd.Flags().GetString("database-url")
	if url == "" {
		return "", errors.New("--database-url or DATABASE_URL is required")
	}
	return url, nil
}

// EnvKey reads the inherited --env-key flag.
func EnvKey(cmd *cobra.Command) string {
	key, _ := cmd.Flags().GetString("env-key")
	return key
}

// Logger builds a console logger honoring --log-level.
func Logger(cmd *cobra.Command) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return platformlogging.NewLogger(platformlogging.Config{
		Component: "console-cli",
		Level:     level,
		Output:    cmd.ErrOrStderr(),
	})
}

// Env is an open database plus a logger. Close releases both.
type Env struct {
	Pool   *pgxpool.Pool
	DB     *persistence.TenantDB
	Logger *zap.Logger
}

func (e *Env) Close() {
	persistence.ClosePool(e.Pool)
	_ = e.Logger.Sync()
}

// Open connects to the database named by the inherited flags.
func Open(cmd *cobra.Command) (*Env, error) {
	url, err := DatabaseURL(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := Logger(cmd)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pool, err := persistence.NewPool(cmd.Context(), persistence.PoolConfig{ConnString: url, ApplicationName: "console-cli"})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	return &Env{Pool: pool, DB: persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool}), Logger: logger}, nil
}

// SystemContext marks activity written by the CLI as system actions.
func SystemContext(ctx context.Context) context.Context {
	return requesttrace.IntoContext(ctx, requesttrace.System("cli"))
}

// OwnerScope acts on a tenant with owner rights.
func OwnerScope(tenantID string) (tenant.Scope, error) {
	id, err := ParseUUID("tenant", tenantID)
	if err != nil {
		return tenant.Scope{}, err
	}
	return tenant.Scope{TenantID: id, UserID: Operator.ID, Role: platformauth.RoleOwner}, nil
}
