package audit

import (
	"context"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "log", cfg: Config{Driver: DriverLog}},
		{name: "none", cfg: Config{Driver: DriverNone}},
		{name: "qstash", cfg: Config{Driver: DriverQStash}},
		{name: "sqlite with dsn", cfg: Config{Driver: DriverSQLite, DSN: ":memory:"}},
		{name: "empty driver", cfg: Config{}, wantErr: true},
		{name: "unknown driver", cfg: Config{Driver: "kafka"}, wantErr: true},
		{name: "postgres without dsn", cfg: Config{Driver: DriverPostgres}, wantErr: true},
		{name: "sqlite without dsn", cfg: Config{Driver: DriverSQLite}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	none, err := Open(ctx, Config{Driver: DriverNone})
	if err != nil || none != nil {
		t.Fatalf("Open(none) = %v, %v", none, err)
	}

	logSink, err := Open(ctx, Config{Driver: DriverLog})
	if err != nil {
		t.Fatalf("Open(log) error = %v", err)
	}
	if _, ok := logSink.(*LogSink); !ok {
		t.Fatalf("Open(log) = %T", logSink)
	}

	sqlSink, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	t.Cleanup(func() { _ = sqlSink.Close() })
	if _, ok := sqlSink.(*SQLSink); !ok {
		t.Fatalf("Open(sqlite) = %T", sqlSink)
	}

	qstash, err := Open(ctx, Config{Driver: DriverQStash, QStash: QStashConfig{
		URL:         "https://qstash.upstash.io",
		Token:       "t",
		Destination: "https://hooks.example.com/drift",
	}})
	if err != nil {
		t.Fatalf("Open(qstash) error = %v", err)
	}
	if _, ok := qstash.(*QStashSink); !ok {
		t.Fatalf("Open(qstash) = %T", qstash)
	}

	if _, err := Open(ctx, Config{Driver: DriverUpstash}); err == nil {
		t.Fatalf("Open(upstash) without url should fail")
	}
}
