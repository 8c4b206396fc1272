package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"doccustody/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseDBConfig() config.DatabaseConfig {
	return config.DatabaseConfig{Host: "db", Port: "5432", User: "custody", Name: "custody"}
}

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.DatabaseConfig)
		want    string
		wantErr bool
	}{
		{
			name: "session settings become query parameters",
			mutate: func(c *config.DatabaseConfig) {
				c.Password = "s3cret"
				c.SSLMode = "disable"
				c.ApplicationName = "doccustody"
				c.StatementTimeout = 10 * time.Second
			},
			want: "postgres://custody:s3cret@db:5432/custody?application_name=doccustody&sslmode=disable&statement_timeout=10000",
		},
		{
			name:   "no password and no session settings",
			mutate: func(c *config.DatabaseConfig) {},
			want:   "postgres://custody@db:5432/custody",
		},
		{
			name:   "sub-second statement timeout is kept in milliseconds",
			mutate: func(c *config.DatabaseConfig) { c.StatementTimeout = 250 * time.Millisecond },
			want:   "postgres://custody@db:5432/custody?statement_timeout=250",
		},
		{
			name:   "ipv6 host is bracketed",
			mutate: func(c *config.DatabaseConfig) { c.Host = "::1" },
			want:   "postgres://custody@[::1]:5432/custody",
		},
		{name: "missing host", mutate: func(c *config.DatabaseConfig) { c.Host = "" }, wantErr: true},
		{name: "missing port", mutate: func(c *config.DatabaseConfig) { c.Port = "" }, wantErr: true},
		{name: "missing user", mutate: func(c *config.DatabaseConfig) { c.User = "" }, wantErr: true},
		{name: "missing name", mutate: func(c *config.DatabaseConfig) { c.Name = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseDBConfig()
			tt.mutate(&c)
			got, err := BuildPostgresDSN(c)
			if tt.wantErr {
				assert.ErrorIs(t, err, errIncompleteConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigurePool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := baseDBConfig()
	c.MaxOpenConns = 4
	c.MaxIdleConns = 10
	configurePool(db, c)

	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}

// stubOpen points sqlOpen at db for the duration of the test.
func stubOpen(t *testing.T, db *sql.DB, err error) *string {
	t.Helper()
	var gotDSN string
	orig := sqlOpen
	sqlOpen = func(_, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return db, err
	}
	t.Cleanup(func() { sqlOpen = orig })
	return &gotDSN
}

func TestNewPostgres(t *testing.T) {
	conf := baseDBConfig()
	conf.ApplicationName = "doccustody"
	conf.StatementTimeout = 5 * time.Second
	conf.MaxOpenConns = 10

	t.Run("opens with the session DSN and pings", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dsn := stubOpen(t, db, nil)

		mock.ExpectPing()

		got, err := NewPostgres(context.Background(), conf)
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.Contains(t, *dsn, "statement_timeout=5000")
		assert.Contains(t, *dsn, "application_name=doccustody")
		assert.Equal(t, 10, got.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open error", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		got, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "sql open: open error")
		assert.Nil(t, got)
	})

	t.Run("ping error closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)

		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()

		got, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "db ping: ping failed")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("incomplete config never opens", func(t *testing.T) {
		dsn := stubOpen(t, nil, errors.New("unexpected open"))

		got, err := NewPostgres(context.Background(), config.DatabaseConfig{})
		assert.ErrorIs(t, err, errIncompleteConfig)
		assert.Nil(t, got)
		assert.Empty(t, *dsn)
	})
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, Ping(context.Background(), db))

	assert.NoError(t, mock.ExpectationsWereMet())
}
