package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	gs "google.golang.org/api/sheets/v4"

	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
)

// MockSheetsServer fakes the subset of the Sheets v4 REST API the sheets
// package uses. Each tab is an in-memory msglog.MemTable.
type MockSheetsServer struct {
	*httptest.Server

	mu       sync.Mutex
	tabs     map[string]*msglog.MemTable
	order    []string
	failures []int // status codes returned by the next requests, in order
	requests []string
}

// NewMockSheetsServer starts a server with the given tabs already present.
func NewMockSheetsServer(t *testing.T, tabs ...string) *MockSheetsServer {
	t.Helper()
	m := &MockSheetsServer{tabs: make(map[string]*msglog.MemTable)}
	for _, tab := range tabs {
		m.addTab(tab)
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

// Service returns a Sheets client pointed at the mock.
func (m *MockSheetsServer) Service(t *testing.T) *gs.Service {
	t.Helper()
	svc, err := gs.NewService(context.Background(),
		option.WithEndpoint(m.URL+"/"),
		option.WithHTTPClient(m.Client()),
	)
	if err != nil {
		t.Fatalf("create sheets service: %v", err)
	}
	return svc
}

// FailNext makes the next len(codes) requests fail with the given statuses.
func (m *MockSheetsServer) FailNext(codes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, codes...)
}

// Tab returns the backing table of a tab, or nil.
func (m *MockSheetsServer) Tab(name string) *msglog.MemTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabs[name]
}

// Requests lists "METHOD path" for every request served.
func (m *MockSheetsServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *MockSheetsServer) addTab(name string) {
	if _, ok := m.tabs[name]; ok {
		return
	}
	m.tabs[name] = msglog.NewMemTable()
	m.order = append(m.order, name)
}

func (m *MockSheetsServer) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.Method+" "+r.URL.Path)
	if len(m.failures) > 0 {
		code := m.failures[0]
		m.failures = m.failures[1:]
		m.mu.Unlock()
		writeJSON(w, code, map[string]any{"error": map[string]any{"code": code, "message": http.StatusText(code)}})
		return
	}
	m.mu.Unlock()

	// /v4/spreadsheets/{id}[/values/{range}][:verb]
	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, valuesPart, isValues := strings.Cut(rest, "/values/")
	switch {
	case isValues:
		m.serveValues(w, r, valuesPart)
	case strings.HasSuffix(id, ":batchUpdate") && r.Method == http.MethodPost:
		m.serveBatchUpdate(w, r)
	case r.Method == http.MethodGet:
		m.mu.Lock()
		var sheets []map[string]any
		for _, name := range m.order {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": name}})
		}
		m.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": id, "sheets": sheets})
	default:
		http.NotFound(w, r)
	}
}

func (m *MockSheetsServer) serveBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req gs.BatchUpdateSpreadsheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": err.Error()}})
		return
	}
	m.mu.Lock()
	for _, rq := range req.Requests {
		if rq.AddSheet != nil && rq.AddSheet.Properties != nil {
			m.addTab(rq.AddSheet.Properties.Title)
		}
	}
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"replies": []any{}})
}

func (m *MockSheetsServer) serveValues(w http.ResponseWriter, r *http.Request, rng string) {
	appending := strings.HasSuffix(rng, ":append") && r.Method == http.MethodPost
	rng = strings.TrimSuffix(rng, ":append")
	tabName, a1, ok := splitQualified(rng)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": "unable to parse range: " + rng}})
		return
	}
	tab := m.Tab(tabName)
	if tab == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": "unable to parse range: " + rng}})
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodGet {
		rows, err := tab.ReadRange(ctx, a1)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": err.Error()}})
			return
		}
		// The real API omits trailing empty rows and cells.
		for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
			rows = rows[:len(rows)-1]
		}
		writeJSON(w, http.StatusOK, map[string]any{"range": rng, "majorDimension": "ROWS", "values": rows})
		return
	}

	var body gs.ValueRange
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": err.Error()}})
		return
	}
	for _, vals := range body.Values {
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i], _ = v.(string)
		}
		var err error
		if appending {
			err = tab.Append(ctx, row)
		} else {
			err = tab.UpdateRange(ctx, a1, row)
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": err.Error()}})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"updatedRange": rng})
}

// splitQualified splits "'Tab'!A1:F1" or "Tab!A1" into tab and range.
func splitQualified(s string) (tab, a1 string, ok bool) {
	i := strings.LastIndex(s, "!")
	if i < 0 {
		return "", "", false
	}
	tab, a1 = s[:i], s[i+1:]
	if strings.HasPrefix(tab, "'") && strings.HasSuffix(tab, "'") && len(tab) >= 2 {
		tab = strings.ReplaceAll(tab[1:len(tab)-1], "''", "'")
	}
	return tab, a1, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}
