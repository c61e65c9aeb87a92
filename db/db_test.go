package db

import (
	"context"
	"strings"
	"testing"

	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
)

func TestSliceColumns(t *testing.T) {
	cells := [msglog.NumColumns]string{"t", "received", "1", "2", "f", "x"}
	tests := []struct {
		a1   string
		want string
	}{
		{msglog.KeyRange, "received,1,2"},
		{msglog.MessageIDRange, "2"},
		{"A1:F1", "t,received,1,2,f,x"},
		{"E1:Z1", "f,x"},
	}
	for _, tt := range tests {
		rng, err := msglog.ParseA1(tt.a1)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(sliceColumns(cells, rng), ","); got != tt.want {
			t.Errorf("sliceColumns(%s) = %q, want %q", tt.a1, got, tt.want)
		}
	}
}

func TestTableRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cleanDatabase(t, ctx, db)
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tbl := NewTable(db, "Messages")
	if err := tbl.EnsureTab(ctx); err != nil {
		t.Fatalf("EnsureTab: %v", err)
	}
	first := msglog.Row{Timestamp: "t1", Status: msglog.StatusReceived, ChatID: "1", MessageID: "10", From: "a", Text: "hi"}
	second := msglog.Row{Timestamp: "t2", Status: msglog.StatusReceived, ChatID: "2", MessageID: "10", From: "b", Text: "yo"}
	for _, r := range []msglog.Row{first, second} {
		if err := tbl.Append(ctx, r.Values()); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	l := msglog.NewLocator(tbl)
	m, found, err := l.FindByKey(ctx, "2", "10")
	if err != nil || !found || m.Row != 3 {
		t.Fatalf("FindByKey = (%+v, %v, %v), want row 3", m, found, err)
	}
	if _, found, _ := l.FindByMessageIDOnly(ctx, "10"); found {
		t.Error("ambiguous message id resolved")
	}

	second.Status = msglog.StatusDeleted
	if err := tbl.UpdateRange(ctx, msglog.RowRange(3), second.Values()); err != nil {
		t.Fatalf("UpdateRange: %v", err)
	}
	got, err := l.ReadRow(ctx, 3)
	if err != nil || got != second {
		t.Fatalf("ReadRow = (%+v, %v), want %+v", got, err, second)
	}
	header, err := tbl.ReadRange(ctx, msglog.HeaderRange)
	if err != nil || len(header) != 1 || header[0][0] != "timestamp_iso" {
		t.Errorf("header = %v, %v", header, err)
	}
	if err := tbl.UpdateRange(ctx, "A2:F3", first.Values()); err == nil {
		t.Error("multi-row update accepted")
	}
}
