package dialect

import "testing"

func TestRebind(t *testing.T) {
	t.Parallel()

	q := "SELECT * FROM readings WHERE ts >= ? AND ts < ? LIMIT ?"

	if got := SQLite.Rebind(q); got != q {
		t.Errorf("SQLite.Rebind() = %q", got)
	}

	want := "SELECT * FROM readings WHERE ts >= $1 AND ts < $2 LIMIT $3"
	if got := PostgreSQL.Rebind(q); got != want {
		t.Errorf("PostgreSQL.Rebind() = %q, want %q", got, want)
	}
}

func TestValidateAndDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d       Dialect
		driver  string
		wantErr bool
	}{
		{d: SQLite, driver: "sqlite3"},
		{d: PostgreSQL, driver: "pgx"},
		{d: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		if err := tt.d.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate() error = %v", tt.d, err)
		}
		if got := tt.d.Driver(); got != tt.driver {
			t.Errorf("%s.Driver() = %q, want %q", tt.d, got, tt.driver)
		}
	}
}

func TestMigrationURL(t *testing.T) {
	t.Parallel()

	if got := SQLite.MigrationURL("data/led.db"); got != "sqlite:data/led.db" {
		t.Errorf("SQLite.MigrationURL() = %q", got)
	}
	pg := "postgres://u:p@localhost:5432/led?sslmode=disable"
	if got := PostgreSQL.MigrationURL(pg); got != pg {
		t.Errorf("PostgreSQL.MigrationURL() = %q", got)
	}
}
