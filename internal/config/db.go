package config

import (
	"net"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
)

// GetDatabaseDSN returns the MySQL connection string. DB_USER, DB_PASSWORD,
// DB_HOST, DB_PORT and DB_NAME are used when all are set, then DATABASE_DSN,
// then a local default.
func GetDatabaseDSN() string {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_NAME")

	if user != "" && password != "" && host != "" && port != "" && database != "" {
		return formatDSN(user, password, net.JoinHostPort(host, port), database)
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn
	}

	return formatDSN("metobs", "metobs", "localhost:3306", "metobs")
}

// observed_at holds zone-less wall clock times, so the driver must not shift them
func formatDSN(user, password, addr, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}
