package msglog

import (
	"context"
	"sync"
)

// MemTable is an in-process Table. It backs dry runs (LOG_BACKEND=memory) and
// tests. Like a spreadsheet it trims nothing on write and returns trailing
// empty rows as empty slices.
type MemTable struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
}

func NewMemTable() *MemTable { return &MemTable{} }

// ReadRange implements Table.
func (m *MemTable) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng, err := ParseA1(a1)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	start := max(rng.StartRow, 1)
	end := len(m.rows)
	if rng.EndRow != 0 && rng.EndRow < end {
		end = rng.EndRow
	}
	var out [][]string
	for r := start; r <= end; r++ {
		src := m.rows[r-1]
		var cells []string
		for c := rng.StartCol; c <= rng.EndCol && c < len(src); c++ {
			cells = append(cells, src[c])
		}
		out = append(out, cells)
	}
	return out, nil
}

// Append implements Table.
func (m *MemTable) Append(ctx context.Context, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, append([]string(nil), row...))
	m.writes++
	return nil
}

// UpdateRange implements Table. Only single-row ranges are supported.
func (m *MemTable) UpdateRange(ctx context.Context, a1 string, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rng, err := ParseA1(a1)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write(rng, row)
	m.writes++
	return nil
}

func (m *MemTable) write(rng Range, row []string) {
	r := max(rng.StartRow, 1)
	for len(m.rows) < r {
		m.rows = append(m.rows, nil)
	}
	dst := m.rows[r-1]
	for i, v := range row {
		c := rng.StartCol + i
		if c > rng.EndCol {
			break
		}
		for len(dst) <= c {
			dst = append(dst, "")
		}
		dst[c] = v
	}
	m.rows[r-1] = dst
}

// EnsureTab implements Table. The header write is not counted by WriteCount.
func (m *MemTable) EnsureTab(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rng, _ := ParseA1(HeaderRange)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write(rng, Header)
	return nil
}

// Rows returns a copy of every row including the header.
func (m *MemTable) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// DataRows returns the rows below the header as Rows.
func (m *MemTable) DataRows() []Row {
	all := m.Rows()
	var out []Row
	for i, r := range all {
		if i < HeaderRows {
			continue
		}
		out = append(out, RowFromValues(r))
	}
	return out
}

// WriteCount reports how many Append and UpdateRange calls succeeded.
func (m *MemTable) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
