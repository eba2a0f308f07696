package google

import (
	"fmt"
	"strconv"
	"strings"

	"painel/internal/core"
)

// column positions of the transaction sheet
const (
	colDate = iota
	colDescription
	colCategory
	colAmount
	colKind
	colInstallments
	colExtra1
	colExtra2
	columnCount
)

// headerAliases maps known header labels to their column.
var headerAliases = map[string]int{
	"data":         colDate,
	"date":         colDate,
	"descrição":    colDescription,
	"descricao":    colDescription,
	"description":  colDescription,
	"categoria":    colCategory,
	"category":     colCategory,
	"valor":        colAmount,
	"amount":       colAmount,
	"tipo":         colKind,
	"kind":         colKind,
	"type":         colKind,
	"parcelas":     colInstallments,
	"installments": colInstallments,
}

// parseRows converts a values matrix (as returned by Sheets API) into raw rows.
// When the first row is a header, columns are matched by label and anything
// unrecognised falls back to its position. Row numbers are 1-based sheet rows.
func parseRows(values [][]interface{}) []core.RawRow {
	if len(values) == 0 {
		return []core.RawRow{}
	}

	layout := defaultLayout()
	start := 0
	if isHeader(values[0]) {
		layout = headerLayout(toStrings(values[0]))
		start = 1
	}

	rows := make([]core.RawRow, 0, len(values)-start)
	for i := start; i < len(values); i++ {
		cells := toStrings(values[i])
		get := func(col int) string { return safeGet(cells, layout[col]) }
		row := core.RawRow{
			Row:             i + 1,
			DateText:        get(colDate),
			Description:     get(colDescription),
			Category:        get(colCategory),
			AmountText:      get(colAmount),
			KindText:        get(colKind),
			InstallmentText: get(colInstallments),
			Extra1:          get(colExtra1),
			Extra2:          get(colExtra2),
		}
		if row.IsBlank() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func isHeader(row []interface{}) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(fmt.Sprint(row[0])))
	return first == "data" || first == "date"
}

func defaultLayout() [columnCount]int {
	var layout [columnCount]int
	for i := range layout {
		layout[i] = i
	}
	return layout
}

func headerLayout(headers []string) [columnCount]int {
	layout := defaultLayout()
	for i, h := range headers {
		if col, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			layout[col] = i
		}
	}
	return layout
}

// toStrings renders cells as text. Numbers come back from the API as float64
// and are written with a decimal comma so they parse like typed-in values.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strings.Replace(strconv.FormatFloat(n, 'f', -1, 64), ".", ",", 1)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
