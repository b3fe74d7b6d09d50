package memory

import (
	"context"
	"sync"

	ports "finboard/internal/sheets"
)

// Mirror keeps the last written ledger and every appended reminder row.
type Mirror struct {
	mu        sync.Mutex
	ledger    [][]string
	reminders [][]string
	writes    int
}

var _ ports.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) ReplaceLedger(_ context.Context, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = cloneRows(rows)
	m.writes++
	return nil
}

func (m *Mirror) AppendReminder(_ context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append(m.reminders, append([]string(nil), row...))
	return nil
}

// Ledger returns the rows of the last rewrite, without the header.
func (m *Mirror) Ledger() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRows(m.ledger)
}

func (m *Mirror) Reminders() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRows(m.reminders)
}

// Writes counts ledger rewrites.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func cloneRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
