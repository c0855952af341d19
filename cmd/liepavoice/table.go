package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return buildTable(headers, rows, aligns, false)
}

// renderTotalsTable is renderTable plus a footer summing the numeric columns.
func renderTotalsTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return buildTable(headers, rows, aligns, len(rows) > 1)
}

func buildTable(headers []string, rows [][]string, aligns []columnAlignment, totals bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(toRow(headers, columns))
	for _, row := range rows {
		tw.AppendRow(toRow(row, columns))
	}
	if totals {
		tw.AppendFooter(totalsRow(rows, aligns, columns))
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// toRow pads or truncates cells to exactly columns entries.
func toRow(cells []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := range columns {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

// totalsRow sums every right-aligned integer column. Columns holding anything
// else stay blank.
func totalsRow(rows [][]string, aligns []columnAlignment, columns int) table.Row {
	footer := make(table.Row, columns)
	footer[0] = "total"
	for i := 1; i < columns; i++ {
		footer[i] = ""
		if i >= len(aligns) || aligns[i] != alignRight {
			continue
		}
		sum, ok := 0, true
		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			n, err := strconv.Atoi(row[i])
			if err != nil {
				ok = false
				break
			}
			sum += n
		}
		if ok {
			footer[i] = strconv.Itoa(sum)
		}
	}
	return footer
}
