// Package sheets stores the message log in a Google Sheets tab. It wraps a
// service-account authorized Sheets API client, throttles every call to stay
// under the per-minute quota, and implements msglog.Table.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	gs "google.golang.org/api/sheets/v4"

	"github.com/Muzaffarxon04/tg-message-archiver/config"
	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
)

const (
	valueInputRaw  = "RAW"
	insertRowsMode = "INSERT_ROWS"
)

// ErrInvalidServiceAccount is returned when the credentials file lacks the
// fields a service-account JWT needs.
var ErrInvalidServiceAccount = errors.New("sheets: service account file must contain client_email and private_key")

// Table is a msglog.Table backed by one tab of one spreadsheet.
type Table struct {
	svc           *gs.Service
	spreadsheetID string
	tab           string
	limiter       *rate.Limiter
}

var _ msglog.Table = (*Table)(nil)

// New builds a Table from config, authorizing with the service account file.
func New(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Table, error) {
	raw, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	creds, err := NormalizeServiceAccount(raw)
	if err != nil {
		return nil, err
	}
	jwt, err := google.JWTConfigFromJSON(creds, gs.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	client := jwt.Client(ctx)
	client.Transport = otelhttp.NewTransport(client.Transport)
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := gs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.Info("sheets client ready", slog.String("client_email", jwt.Email), slog.String("tab", cfg.TabName), slog.String("component", "sheets"))
	return NewWithService(svc, cfg.SpreadsheetID, cfg.TabName, cfg.SheetsMaxRPS), nil
}

// NewWithService wraps an existing service. maxRPS <= 0 disables throttling.
func NewWithService(svc *gs.Service, spreadsheetID, tab string, maxRPS float64) *Table {
	lim := rate.NewLimiter(rate.Inf, 1)
	if maxRPS > 0 {
		lim = rate.NewLimiter(rate.Limit(maxRPS), 1)
	}
	return &Table{svc: svc, spreadsheetID: spreadsheetID, tab: tab, limiter: lim}
}

// NormalizeServiceAccount checks the required fields and repairs private keys
// whose newlines were stored as the two characters `\n` (common when the key
// went through an env var or CI secret).
func NormalizeServiceAccount(raw []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse service account file: %w", err)
	}
	email, _ := m["client_email"].(string)
	key, _ := m["private_key"].(string)
	if email == "" || key == "" {
		return nil, ErrInvalidServiceAccount
	}
	if strings.Contains(key, `\n`) {
		m["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
	}
	return json.Marshal(m)
}

// qualify prefixes a1 with the quoted tab name.
func (t *Table) qualify(a1 string) string {
	return "'" + strings.ReplaceAll(t.tab, "'", "''") + "'!" + a1
}

func (t *Table) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sheets rate limiter: %w", err)
	}
	return nil
}

// ReadRange implements msglog.Table.
func (t *Table) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, t.qualify(a1)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", a1, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok {
				cells[j] = s
			} else if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out, nil
}

// Append implements msglog.Table. Values are written RAW so text that looks
// like a formula or number is stored verbatim.
func (t *Table) Append(ctx context.Context, row []string) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	vr := &gs.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, t.qualify(msglog.AppendRange), vr).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRowsMode).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}

// UpdateRange implements msglog.Table.
func (t *Table) UpdateRange(ctx context.Context, a1 string, row []string) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	vr := &gs.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, t.qualify(a1), vr).
		ValueInputOption(valueInputRaw).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets update %s: %w", a1, err)
	}
	return nil
}

// EnsureTab creates the tab when the spreadsheet lacks it and (re)writes the
// header row.
func (t *Table) EnsureTab(ctx context.Context) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	ss, err := t.svc.Spreadsheets.Get(t.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets get spreadsheet: %w", err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == t.tab {
			exists = true
			break
		}
	}
	if !exists {
		if err := t.wait(ctx); err != nil {
			return err
		}
		req := &gs.BatchUpdateSpreadsheetRequest{Requests: []*gs.Request{{
			AddSheet: &gs.AddSheetRequest{Properties: &gs.SheetProperties{Title: t.tab}},
		}}}
		if _, err := t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("sheets add tab %q: %w", t.tab, err)
		}
		slog.Info("created sheet tab", slog.String("tab", t.tab), slog.String("component", "sheets"))
	}
	return t.UpdateRange(ctx, msglog.HeaderRange, msglog.Header)
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
