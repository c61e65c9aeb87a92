package msglog

import (
	"context"
	"fmt"
	"log/slog"
)

// Match is a located row.
type Match struct {
	Row    int
	Status Status
}

// Locator rediscovers row positions by scanning key columns. Positions are
// 1-based and include the header offset. Nothing is cached between calls:
// the table is shared and rows only ever become valid by rescanning.
type Locator struct {
	t Table
}

func NewLocator(t Table) *Locator { return &Locator{t: t} }

// FindByKey returns the row recorded for (chatID, messageID). When a message
// was deleted and later recorded again, the live row wins over the deleted
// one; otherwise the first match is returned.
func (l *Locator) FindByKey(ctx context.Context, chatID, messageID string) (Match, bool, error) {
	rows, err := l.t.ReadRange(ctx, KeyRange)
	if err != nil {
		return Match{}, false, fmt.Errorf("read key columns: %w", err)
	}
	var first Match
	found := false
	for i, cells := range rows {
		// KeyRange starts at column B: status, chat_id, message_id.
		if cell(cells, 1) != chatID || cell(cells, 2) != messageID {
			continue
		}
		m := Match{Row: i + 1 + HeaderRows, Status: Status(cell(cells, 0))}
		if m.Status != StatusDeleted {
			return m, true, nil
		}
		if !found {
			first, found = m, true
		}
	}
	return first, found, nil
}

// FindByMessageIDOnly returns the sole row carrying messageID. Zero matches
// and more than one match both report not found: with ids only unique per
// chat, picking one of several would mutate an unrelated message.
func (l *Locator) FindByMessageIDOnly(ctx context.Context, messageID string) (int, bool, error) {
	rows, err := l.t.ReadRange(ctx, MessageIDRange)
	if err != nil {
		return 0, false, fmt.Errorf("read message id column: %w", err)
	}
	found := 0
	for i, cells := range rows {
		if cell(cells, 0) != messageID {
			continue
		}
		if found != 0 {
			slog.Debug("message id match is ambiguous", slog.String("message_id", messageID), slog.String("component", "msglog"))
			return 0, false, nil
		}
		found = i + 1 + HeaderRows
	}
	return found, found != 0, nil
}

// ReadRow returns the full row at a 1-based position.
func (l *Locator) ReadRow(ctx context.Context, row int) (Row, error) {
	rows, err := l.t.ReadRange(ctx, RowRange(row))
	if err != nil {
		return Row{}, fmt.Errorf("read row %d: %w", row, err)
	}
	if len(rows) == 0 {
		return Row{}, nil
	}
	return RowFromValues(rows[0]), nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
