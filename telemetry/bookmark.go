package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/steppe/components"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkGroupLoss   BookmarkType = "group_loss"
	BookmarkRecolonised BookmarkType = "recolonised"
	BookmarkCrash       BookmarkType = "biomass_crash"
	BookmarkDrought     BookmarkType = "drought"
)

// Detector thresholds.
const (
	CrashFraction     = 0.5 // biomass below this share of the running peak
	RecolonisationGap = 5   // absent years before a return is notable
	DroughtYears      = 3   // consecutive dry years
)

// Bookmark is a notable moment in one iteration.
type Bookmark struct {
	Iter        int          `csv:"iter"`
	Year        int          `csv:"year"`
	Type        BookmarkType `csv:"type"`
	Group       string       `csv:"group"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"iter", b.Iter,
		"year", b.Year,
		"group", b.Group,
		"description", b.Description,
	)
}

// BookmarkDetector watches one iteration's yearly group biomass.
type BookmarkDetector struct {
	iter    int
	groups  []string
	peak    []float64
	present []bool
	seen    []bool
	absent  []int
	dryRun  int
}

// NewBookmarkDetector creates a detector for the named groups.
func NewBookmarkDetector(iter int, groups []string) *BookmarkDetector {
	n := len(groups)
	return &BookmarkDetector{
		iter:    iter,
		groups:  groups,
		peak:    make([]float64, n),
		present: make([]bool, n),
		seen:    make([]bool, n),
		absent:  make([]int, n),
	}
}

// Check analyzes one year and returns any triggered bookmarks. biomass is
// indexed like the detector's groups.
func (bd *BookmarkDetector) Check(year int, biomass []float64, wd components.PPTClass) []Bookmark {
	var bookmarks []Bookmark
	mark := func(typ BookmarkType, group, desc string) {
		bookmarks = append(bookmarks, Bookmark{Iter: bd.iter, Year: year, Type: typ, Group: group, Description: desc})
	}

	if wd == components.PPTDry {
		bd.dryRun++
		if bd.dryRun == DroughtYears {
			mark(BookmarkDrought, "", fmt.Sprintf("%d consecutive dry years", DroughtYears))
		}
	} else {
		bd.dryRun = 0
	}

	for i, name := range bd.groups {
		b := biomass[i]
		switch {
		case b > 0 && !bd.present[i]:
			if bd.seen[i] && bd.absent[i] >= RecolonisationGap {
				mark(BookmarkRecolonised, name, fmt.Sprintf("returned after %d years absent", bd.absent[i]))
			}
			bd.present[i], bd.seen[i] = true, true
			bd.absent[i] = 0
			bd.peak[i] = b
		case b > 0:
			if b < bd.peak[i]*CrashFraction {
				mark(BookmarkCrash, name, fmt.Sprintf("biomass %.2f fell from peak %.2f", b, bd.peak[i]))
				bd.peak[i] = b
			}
			bd.peak[i] = max(bd.peak[i], b)
		case bd.present[i]:
			mark(BookmarkGroupLoss, name, fmt.Sprintf("biomass lost from peak %.2f", bd.peak[i]))
			bd.present[i] = false
			bd.absent[i] = 1
			bd.peak[i] = 0
		default:
			bd.absent[i]++
		}
	}
	return bookmarks
}
