package memory

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"painel/internal/core"
	ports "painel/internal/sheets"
)

var (
	_ ports.TransactionSource = (*Store)(nil)
	_ ports.RowWriter         = (*Store)(nil)
	_ ports.SettingsStore     = (*Store)(nil)
)

// Store keeps the transaction sheet in memory.
type Store struct {
	mu       sync.Mutex
	rows     []core.RawRow
	settings *core.Settings
}

func New(rows []core.RawRow) *Store {
	return &Store{rows: cloneRows(rows)}
}

// NewFromFile seeds the store from a CSV export of the sheet. A missing or
// unreadable file falls back to a small built-in sample.
func NewFromFile(path string) *Store {
	rows, err := ReadCSV(path)
	if err != nil || len(rows) == 0 {
		return New(SampleRows())
	}
	return New(rows)
}

// ReadRows returns a copy of the stored rows.
func (s *Store) ReadRows(_ context.Context) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.rows), nil
}

// ReplaceRows swaps the stored rows.
func (s *Store) ReplaceRows(_ context.Context, rows []core.RawRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = cloneRows(rows)
	return nil
}

func (s *Store) LoadSettings(_ context.Context) (core.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return core.Settings{}, false, nil
	}
	return *s.settings, true, nil
}

func (s *Store) SaveSettings(_ context.Context, settings core.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}

// ReadCSV loads a sheet export. Both "," and ";" separated files are accepted;
// the separator is taken from the first line. A leading "Data" header is skipped.
func ReadCSV(path string) ([]core.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]core.RawRow, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	line, _, _ := strings.Cut(string(first), "\n")

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if strings.Count(line, ";") > strings.Count(line, ",") {
		cr.Comma = ';'
	}

	var rows []core.RawRow
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv record %d: %w", n, err)
		}
		if n == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff")), "data") {
			continue
		}
		row := toRawRow(n, rec)
		if row.IsBlank() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toRawRow(n int, rec []string) core.RawRow {
	get := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	return core.RawRow{
		Row:             n,
		DateText:        get(0),
		Description:     get(1),
		Category:        get(2),
		AmountText:      get(3),
		KindText:        get(4),
		InstallmentText: get(5),
		Extra1:          get(6),
		Extra2:          get(7),
	}
}

// SampleRows is the data served when no seed file is available.
func SampleRows() []core.RawRow {
	recs := [][]string{
		{"05/01/2024", "Salário", "Trabalho", "R$ 6.500,00", "Receita", "1"},
		{"08/01/2024", "Aluguel", "Moradia", "R$ 2.200,00", "Despesa", "1"},
		{"10/01/2024", "Mercado", "Alimentação", "R$ 850,40", "Despesa", "1"},
		{"15/01/2024", "Tesouro Selic", "Investimento", "R$ 1.000,00", "Despesa", "1"},
		{"20/01/2024", "Notebook", "Eletrônicos", "R$ 4.800,00", "Despesa", "6"},
		{"05/02/2024", "Salário", "Trabalho", "R$ 6.500,00", "Receita", "1"},
		{"08/02/2024", "Aluguel", "Moradia", "R$ 2.200,00", "Despesa", "1"},
		{"12/02/2024", "Mercado", "Alimentação", "R$ 912,15", "Despesa", "1"},
		{"15/02/2024", "CDB", "Investimento", "R$ 1.300,00", "Despesa", "1"},
		{"05/03/2024", "Salário", "Trabalho", "R$ 6.500,00", "Receita", "1"},
		{"06/03/2024", "Freelance", "Trabalho", "R$ 1.250,00", "Receita", "1"},
		{"08/03/2024", "Aluguel", "Moradia", "R$ 2.200,00", "Despesa", "1"},
		{"18/03/2024", "Fundo imobiliário", "Investimento", "R$ 1.500,00", "Despesa", "1"},
	}
	rows := make([]core.RawRow, len(recs))
	for i, rec := range recs {
		rows[i] = toRawRow(i+2, rec)
	}
	return rows
}

func cloneRows(rows []core.RawRow) []core.RawRow {
	return append([]core.RawRow(nil), rows...)
}
