// Package msglog defines the append-only message log: its fixed row schema,
// the primitives a tabular store must offer, and the row locator used to
// rediscover where a message was recorded.
package msglog

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the lifecycle state recorded in the status column.
type Status string

const (
	StatusReceived Status = "received"
	StatusEdited   Status = "edited"
	StatusDeleted  Status = "deleted"
)

// Column positions (0-based) within a row.
const (
	ColTimestamp = iota
	ColStatus
	ColChatID
	ColMessageID
	ColFrom
	ColText
	NumColumns
)

// HeaderRows is the number of header rows above the first data row.
const HeaderRows = 1

// Header is the fixed header row.
var Header = []string{"timestamp_iso", "status", "chat_id", "message_id", "from", "text"}

// Common ranges.
const (
	HeaderRange    = "A1:F1"
	AppendRange    = "A:A"
	KeyRange       = "B2:D"
	MessageIDRange = "D2:D"
)

// Row is one persisted log row.
type Row struct {
	Timestamp string
	Status    Status
	ChatID    string
	MessageID string
	From      string
	Text      string
}

// Values returns the row in column order.
func (r Row) Values() []string {
	return []string{r.Timestamp, string(r.Status), r.ChatID, r.MessageID, r.From, r.Text}
}

// RowFromValues builds a Row from cells, tolerating short rows (stores trim
// trailing empty cells).
func RowFromValues(cells []string) Row {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return Row{
		Timestamp: get(ColTimestamp),
		Status:    Status(get(ColStatus)),
		ChatID:    get(ColChatID),
		MessageID: get(ColMessageID),
		From:      get(ColFrom),
		Text:      get(ColText),
	}
}

// RowRange is the A1 range covering every column of a 1-based row.
func RowRange(row int) string { return fmt.Sprintf("A%d:F%d", row, row) }

// Range is a parsed A1 range. Columns are 0-based; rows are 1-based and 0
// means unbounded.
type Range struct {
	StartCol, EndCol int
	StartRow, EndRow int
}

// ParseA1 parses the subset of A1 notation the log uses: "A2:D", "D2:D",
// "A5:F5", "A:A", "B3". Sheet prefixes are not accepted here.
func ParseA1(s string) (Range, error) {
	from, to, hasTo := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), ":")
	sc, sr, err := parseCell(from)
	if err != nil {
		return Range{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	rng := Range{StartCol: sc, EndCol: sc, StartRow: sr, EndRow: sr}
	if hasTo {
		ec, er, err := parseCell(to)
		if err != nil {
			return Range{}, fmt.Errorf("parse range %q: %w", s, err)
		}
		rng.EndCol, rng.EndRow = ec, er
	}
	if rng.EndCol < rng.StartCol {
		return Range{}, fmt.Errorf("parse range %q: end column before start", s)
	}
	if rng.EndRow != 0 && rng.EndRow < rng.StartRow {
		return Range{}, fmt.Errorf("parse range %q: end row before start", s)
	}
	return rng, nil
}

func parseCell(s string) (col, row int, err error) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i > 2 {
		return 0, 0, fmt.Errorf("bad column in %q", s)
	}
	for _, c := range s[:i] {
		col = col*26 + int(c-'A'+1)
	}
	col--
	if i < len(s) {
		row, err = strconv.Atoi(s[i:])
		if err != nil || row < 1 {
			return 0, 0, fmt.Errorf("bad row in %q", s)
		}
	}
	return col, row, nil
}
