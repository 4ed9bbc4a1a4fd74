package config

import (
	"testing"
)

var dbEnvKeys = []string{"DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "DATABASE_DSN"}

func TestGetDatabaseDSN(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "all components set",
			env: map[string]string{
				"DB_USER":     "testuser",
				"DB_PASSWORD": "testpass",
				"DB_HOST":     "testhost",
				"DB_PORT":     "3307",
				"DB_NAME":     "testdb",
			},
			want: "testuser:testpass@tcp(testhost:3307)/testdb?parseTime=true",
		},
		{
			name: "full DSN",
			env: map[string]string{
				"DATABASE_DSN": "custom:dsn@tcp(custom:3306)/customdb?parseTime=true",
			},
			want: "custom:dsn@tcp(custom:3306)/customdb?parseTime=true",
		},
		{
			name: "components win over DSN",
			env: map[string]string{
				"DB_USER":      "u",
				"DB_PASSWORD":  "p",
				"DB_HOST":      "h",
				"DB_PORT":      "1",
				"DB_NAME":      "d",
				"DATABASE_DSN": "ignored",
			},
			want: "u:p@tcp(h:1)/d?parseTime=true",
		},
		{
			name: "partial components fall back to default",
			env: map[string]string{
				"DB_USER":     "testuser",
				"DB_PASSWORD": "testpass",
			},
			want: "metobs:metobs@tcp(localhost:3306)/metobs?parseTime=true",
		},
		{
			name: "nothing set",
			env:  map[string]string{},
			want: "metobs:metobs@tcp(localhost:3306)/metobs?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range dbEnvKeys {
				t.Setenv(key, tt.env[key])
			}

			if got := GetDatabaseDSN(); got != tt.want {
				t.Errorf("GetDatabaseDSN() = %v, want %v", got, tt.want)
			}
		})
	}
}
