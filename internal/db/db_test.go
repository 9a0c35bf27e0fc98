package db

import (
	"testing"

	"github.com/croissant/croissant-api/internal/config"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestBuildDSN(t *testing.T) {
	base := config.Config{DBUser: "u", DBPassword: "p", DBName: "croissant", DBPort: "3306"}
	cases := []struct {
		name     string
		host     string
		instance string
		want     string
	}{
		{"plain host", "db.local", "", "u:p@tcp(db.local:3306)/croissant?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"explicit tcp", "tcp(10.0.0.1:3307)", "", "u:p@tcp(10.0.0.1:3307)/croissant?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"socket path", "/var/run/mysqld.sock", "", "u:p@unix(/var/run/mysqld.sock)/croissant?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"cloud sql", "ignored", "proj:region:inst", "u:p@unix(/cloudsql/proj:region:inst)/croissant?charset=utf8mb4&parseTime=True&loc=UTC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.DBHost = tc.host
			cfg.InstanceConnectionName = tc.instance
			if got := BuildDSN(&cfg); got != tc.want {
				t.Fatalf("dsn = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestMigrate(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"items", "inventories", "trades", "trade_items", "notifications"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("table %s missing", table)
		}
	}
}
