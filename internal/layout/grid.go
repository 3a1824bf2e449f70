package layout

import (
	"sort"
	"strings"

	"github.com/dkraev/fintrack/internal/textlayer"
)

// columnBoundary is the horizontal span inferred for one table column from
// its detected header item.
type columnBoundary struct {
	name  string
	x     float64
	width float64
}

// columnSet holds the boundaries detected on one page plus the y of the
// header row. It is built per page-parse call and discarded afterwards.
type columnSet struct {
	columns []columnBoundary
	headerY float64
}

// detectHeader locates the configured header labels among the page's text
// items. A label matches the first item whose trimmed text starts with the
// label, case-insensitively. Detection succeeds when at most two labels are
// missing; otherwise the page has no recognizable table.
func detectHeader(items []textlayer.TextItem, cfg TableLayout) (columnSet, bool) {
	var cs columnSet
	haveY := false

	for _, label := range cfg.Headers {
		want := strings.ToLower(label)
		for _, it := range items {
			text := strings.ToLower(strings.TrimSpace(it.Text))
			if strings.HasPrefix(text, want) {
				cs.columns = append(cs.columns, columnBoundary{name: label, x: it.X, width: it.Width})
				if !haveY {
					cs.headerY = it.Y
					haveY = true
				}
				break
			}
		}
	}

	if len(cs.columns) < len(cfg.Headers)-2 {
		return columnSet{}, false
	}
	return cs, true
}

// columnFor returns the name of the column whose widened interval
// [x−tol, x+width+tol] contains itemX, or false when no column matches.
// Boundaries keep the configured header order, so overlapping intervals
// resolve to the leftmost configured column.
func (cs columnSet) columnFor(itemX, tol float64) (string, bool) {
	for _, col := range cs.columns {
		if itemX >= col.x-tol && itemX <= col.x+col.width+tol {
			return col.name, true
		}
	}
	return "", false
}

// tableRow is a y coordinate plus the text items judged to lie on that
// horizontal line, ordered by x.
type tableRow struct {
	y     float64
	items []textlayer.TextItem
}

// groupRows clusters the items strictly below the header line into rows.
// Coordinates are bottom-up, so "below the header" means y < headerY and
// top-to-bottom reading order means descending y.
func groupRows(items []textlayer.TextItem, headerY, tolerance float64) []tableRow {
	var rows []tableRow

	for _, it := range items {
		if it.Y >= headerY {
			continue
		}

		joined := false
		for i := range rows {
			if abs(it.Y-rows[i].y) <= tolerance {
				rows[i].items = append(rows[i].items, it)
				joined = true
				break
			}
		}
		if !joined {
			rows = append(rows, tableRow{y: it.Y, items: []textlayer.TextItem{it}})
		}
	}

	for i := range rows {
		items := rows[i].items
		sort.SliceStable(items, func(a, b int) bool { return items[a].X < items[b].X })
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].y > rows[b].y })

	return rows
}

// rowCells is one row's text distributed across the detected columns.
// Tokens that fall outside every column land in unassigned; that loose text
// becomes the transaction description.
type rowCells struct {
	byColumn   map[string][]string
	unassigned []string
}

// assignColumns distributes a row's items over the column set. Every item
// ends up in exactly one bucket, and intra-column token order follows the
// row's left-to-right x order.
func assignColumns(r tableRow, cs columnSet, tolerance float64) rowCells {
	cells := rowCells{byColumn: make(map[string][]string)}

	for _, it := range r.items {
		text := strings.TrimSpace(it.Text)
		if text == "" {
			continue
		}
		if name, ok := cs.columnFor(it.X, tolerance); ok {
			cells.byColumn[name] = append(cells.byColumn[name], text)
		} else {
			cells.unassigned = append(cells.unassigned, text)
		}
	}

	return cells
}

// cellText joins a column's tokens into one cell string.
func (c rowCells) cellText(column string) string {
	return strings.Join(c.byColumn[column], " ")
}

// looseText joins the unassigned tokens.
func (c rowCells) looseText() string {
	return strings.Join(c.unassigned, " ")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
