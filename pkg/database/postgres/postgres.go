package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

type Config struct {
	Host          string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port          uint16 `env:"POSTGRES_PORT" env-default:"5432"`
	Username      string `env:"POSTGRES_USER" env-default:"patrimonio"`
	Password      string `env:"POSTGRES_PASSWORD" env-default:"patrimonio"`
	Database      string `env:"POSTGRES_DB"   env-default:"patrimonio"`
	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"./migrations"`
}

func (c Config) connString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func New(ctx context.Context, config Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, config.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies pending SQL migrations through a database/sql handle on
// the pgx stdlib driver.
func Migrate(config Config) (int, error) {
	db, err := sql.Open("pgx", config.connString())
	if err != nil {
		return 0, fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	migrations := &migrate.FileMigrationSource{Dir: config.MigrationsDir}
	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return n, nil
}
