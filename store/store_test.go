package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Muzaffarxon04/tg-message-archiver/config"
	"github.com/Muzaffarxon04/tg-message-archiver/db"
	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
	"github.com/Muzaffarxon04/tg-message-archiver/testutil"
)

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, &config.Config{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.EnsureTab(ctx); err != nil {
		t.Fatalf("EnsureTab: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := s.Append(ctx, msglog.Row{Status: msglog.StatusReceived, ChatID: "1", MessageID: "2"}.Values()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	rows, err := s.ReadRange(ctx, msglog.KeyRange)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ReadRange = %v, %v", rows, err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{Backend: "redis"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenSheetsMissingCredentials(t *testing.T) {
	cfg := &config.Config{
		Backend:            config.BackendSheets,
		SpreadsheetID:      "sheet",
		TabName:            "Log",
		ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json"),
	}
	_, err := Open(context.Background(), cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

type pingTable struct {
	*msglog.MemTable
	err error
}

func (p pingTable) Ping(context.Context) error { return p.err }

func TestPingPrefersBackendPing(t *testing.T) {
	want := errors.New("pool closed")
	s := &Store{Table: pingTable{MemTable: msglog.NewMemTable(), err: want}}
	if err := s.Ping(context.Background()); !errors.Is(err, want) {
		t.Errorf("Ping = %v, want %v", err, want)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestOpenPostgres(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{Backend: config.BackendPostgres, DBDsn: os.Getenv("TEST_PG_DSN"), TabName: "store-test"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		t.Fatalf("GetMigrationVersion: %v", err)
	}
	if dirty || version == 0 {
		t.Errorf("after Open: version = %d, dirty = %v", version, dirty)
	}

	if err := s.EnsureTab(ctx); err != nil {
		t.Fatalf("EnsureTab: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Append(ctx, msglog.Row{Status: msglog.StatusReceived, ChatID: "9", MessageID: "1", Text: "hi"}.Values()); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var n int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_log WHERE tab = $1`, "store-test").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("rows in tab = %d, want header plus one", n)
	}
}
