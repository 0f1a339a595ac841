package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hartono/bizman-backend/internal/config"
	"github.com/hartono/bizman-backend/internal/database"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{
		DBUser: "app",
		DBPass: "s3cret",
		DBHost: "db.internal",
		DBPort: "3306",
		DBName: "bizman",
	}
	require.Equal(t,
		"app:s3cret@tcp(db.internal:3306)/bizman?charset=utf8mb4&parseTime=true&loc=UTC",
		database.DSN(cfg))
}

func TestDSNEmptyPassword(t *testing.T) {
	cfg := config.Config{
		DBUser: "app",
		DBHost: "localhost",
		DBPort: "3306",
		DBName: "bizman",
	}
	require.Equal(t,
		"app@tcp(localhost:3306)/bizman?charset=utf8mb4&parseTime=true&loc=UTC",
		database.DSN(cfg))
}
