package systems

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/steppe/population"
)

// ResourceRow is one line of a resource table.
type ResourceRow struct {
	Year     int     `csv:"year"`
	Group    string  `csv:"group"`
	Baseline float64 `csv:"baseline"`
	Actual   float64 `csv:"actual"`
}

type tableKey struct {
	year  int
	group string
}

// TableProvider replays group resources from a CSV table. It also records
// the PR each group reached, keyed the same way. Safe for concurrent use by
// several iterations.
type TableProvider struct {
	rows map[tableKey]ResourceRow

	mu     sync.Mutex
	lastPR map[tableKey]float64
}

// LoadTable reads a resource table from path.
func LoadTable(path string) (*TableProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening resource table: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTable parses a resource table. Duplicate (year, group) rows are an
// error.
func ReadTable(r io.Reader) (*TableProvider, error) {
	var rows []ResourceRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parsing resource table: %w", err)
	}
	t := &TableProvider{
		rows:   make(map[tableKey]ResourceRow, len(rows)),
		lastPR: make(map[tableKey]float64),
	}
	for _, row := range rows {
		k := tableKey{row.Year, row.Group}
		if _, dup := t.rows[k]; dup {
			return nil, fmt.Errorf("resource table: duplicate row for year %d group %q", row.Year, row.Group)
		}
		if row.Baseline <= 0 {
			return nil, fmt.Errorf("resource table: year %d group %q: baseline must be positive", row.Year, row.Group)
		}
		t.rows[k] = row
	}
	return t, nil
}

// Len returns the number of rows loaded.
func (t *TableProvider) Len() int { return len(t.rows) }

// GroupResource implements ResourceProvider.
func (t *TableProvider) GroupResource(year int, g *population.Group) (baseline, actual float64, ok bool) {
	row, ok := t.rows[tableKey{year, g.Name}]
	if !ok {
		return 0, 0, false
	}
	return row.Baseline, row.Actual, true
}

// ObservePR implements PRObserver.
func (t *TableProvider) ObservePR(year int, g *population.Group) {
	t.mu.Lock()
	t.lastPR[tableKey{year, g.Name}] = g.PR
	t.mu.Unlock()
}

// LastPR returns the most recently observed PR of a group in a year.
func (t *TableProvider) LastPR(year int, group string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pr, ok := t.lastPR[tableKey{year, group}]
	return pr, ok
}
