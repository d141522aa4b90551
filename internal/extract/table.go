package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// wideGap is the horizontal distance (points) treated as a column boundary
// when no tighter strategy applies.
const wideGap = 12.0

// tableStrategy is one geometry configuration for turning positioned words
// into a cell grid. Strategies are tried in order; the first one that yields
// any table wins, and results are never merged across strategies (merging
// double-counts rows).
type tableStrategy struct {
	name string
	// alignColumns clusters word start positions across the whole page into
	// global column boundaries instead of splitting each row independently.
	alignColumns bool
	// cellGap is the per-row gap (points) that starts a new cell when
	// alignColumns is off.
	cellGap float64
	// colTol is the clustering tolerance for global column starts.
	colTol float64
}

var tableStrategies = []tableStrategy{
	{name: "columns", alignColumns: true, colTol: 4.0},
	{name: "gaps-wide", cellGap: wideGap},
	{name: "gaps-tight", cellGap: 6.0},
	{name: "columns-loose", alignColumns: true, colTol: 9.0},
}

// Tables extracts cell grids from every page, one grid per page, using the
// first strategy that detects a table on that page. An empty result is a
// valid terminal state, not an error.
func Tables(data []byte) ([][][]string, error) {
	pages, err := allPageWords(data)
	if err != nil {
		return nil, err
	}

	var tables [][][]string
	for _, words := range pages {
		for _, strat := range tableStrategies {
			if grid := gridFromWords(words, strat); grid != nil {
				tables = append(tables, grid)
				break
			}
		}
	}
	return tables, nil
}

// gridFromWords builds a cell grid under one strategy, or nil when the page
// does not look tabular under it (fewer than two rows, or no row with more
// than one cell).
func gridFromWords(words []word, strat tableStrategy) [][]string {
	rows := clusterRows(words)
	if len(rows) < 2 {
		return nil
	}

	var grid [][]string
	if strat.alignColumns {
		cols := columnStarts(rows, strat.colTol)
		if len(cols) < 2 {
			return nil
		}
		for _, row := range rows {
			grid = append(grid, assignToColumns(row, cols, strat.colTol))
		}
	} else {
		for _, row := range rows {
			grid = append(grid, splitByGaps(row, strat.cellGap))
		}
	}

	multi := 0
	for _, cells := range grid {
		if len(cells) > 1 {
			multi++
		}
	}
	if multi == 0 {
		return nil
	}
	return grid
}

// clusterRows groups words into baseline rows, top to bottom.
func clusterRows(words []word) [][]word {
	sorted := make([]word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sameBaseline(sorted[i].y, sorted[j].y) {
			return sorted[i].y > sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var rows [][]word
	for _, w := range sorted {
		if n := len(rows); n > 0 && sameBaseline(rows[n-1][0].y, w.y) {
			rows[n-1] = append(rows[n-1], w)
			continue
		}
		rows = append(rows, []word{w})
	}
	return rows
}

// columnStarts clusters word x-origins across all rows into column positions.
func columnStarts(rows [][]word, tol float64) []float64 {
	var xs []float64
	for _, row := range rows {
		for _, w := range row {
			xs = append(xs, w.x)
		}
	}
	sort.Float64s(xs)

	var cols []float64
	for _, x := range xs {
		if n := len(cols); n > 0 && x-cols[n-1] <= tol {
			continue
		}
		cols = append(cols, x)
	}
	return cols
}

func assignToColumns(row []word, cols []float64, tol float64) []string {
	cells := make([]string, len(cols))
	for _, w := range row {
		idx := sort.SearchFloat64s(cols, w.x+tol)
		if idx > 0 {
			idx--
		}
		if cells[idx] == "" {
			cells[idx] = w.s
		} else {
			cells[idx] += " " + w.s
		}
	}
	return cells
}

func splitByGaps(row []word, gap float64) []string {
	var cells []string
	var cur strings.Builder
	var prevEnd float64
	for i, w := range row {
		if i > 0 && w.x-prevEnd > gap {
			cells = append(cells, cur.String())
			cur.Reset()
		} else if i > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(w.s)
		prevEnd = w.endX
	}
	if cur.Len() > 0 {
		cells = append(cells, cur.String())
	}
	return cells
}

// headerKeywords mark a row as a column header for any document kind.
var headerKeywords = []string{
	"team", "name", "avg", "average", "lane", "date", "time",
	"hdcp", "handicap", "points", "home", "away", "opponent",
	"bowler", "night", "sex", "games", "pin diff",
}

var spaceRun = regexp.MustCompile(`\s+`)

// RowsFromTable converts a cell grid into header-keyed row maps. The first
// row whose text matches the header keyword set becomes the header; rows
// before it, or all rows when no header exists, get synthetic col_N names.
func RowsFromTable(table [][]string) []map[string]string {
	var cleaned [][]string
	for _, raw := range table {
		cells := make([]string, len(raw))
		empty := true
		for i, c := range raw {
			cells[i] = cleanCell(c)
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			cleaned = append(cleaned, cells)
		}
	}

	header, headerIdx := detectHeader(cleaned)

	var rows []map[string]string
	for idx, cells := range cleaned {
		if idx == headerIdx {
			continue
		}
		names := header
		if idx < headerIdx {
			names = syntheticHeader(len(cells))
		}
		row := make(map[string]string, len(names))
		for i, name := range names {
			if i < len(cells) {
				row[name] = cells[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func detectHeader(rows [][]string) ([]string, int) {
	for idx, cells := range rows {
		if looksLikeHeader(cells) {
			header := make([]string, len(cells))
			for i, c := range cells {
				header[i] = normalizeHeader(c)
			}
			return header, idx
		}
	}

	maxCols := 0
	for _, cells := range rows {
		if len(cells) > maxCols {
			maxCols = len(cells)
		}
	}
	return syntheticHeader(maxCols), -1
}

func syntheticHeader(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = syntheticCol(i)
	}
	return names
}

func looksLikeHeader(cells []string) bool {
	var parts []string
	for _, c := range cells {
		if c != "" {
			parts = append(parts, strings.ToLower(c))
		}
	}
	joined := strings.Join(parts, " ")
	for _, kw := range headerKeywords {
		if strings.Contains(joined, kw) {
			return true
		}
	}
	return false
}

func normalizeHeader(value string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(strings.ToLower(cleanCell(value)), " "))
}

func syntheticCol(idx int) string {
	return "col_" + strconv.Itoa(idx)
}

func cleanCell(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
}
