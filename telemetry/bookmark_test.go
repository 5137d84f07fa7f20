package telemetry

import (
	"testing"

	"github.com/pthm-cable/steppe/components"
)

func hasBookmark(bms []Bookmark, typ BookmarkType) bool {
	for _, bm := range bms {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Crash(t *testing.T) {
	bd := NewBookmarkDetector(1, []string{"grass"})
	for year, b := range []float64{1, 2, 4} {
		if bms := bd.Check(year+1, []float64{b}, components.PPTNorm); len(bms) != 0 {
			t.Fatalf("year %d: unexpected bookmarks %v", year+1, bms)
		}
	}
	bms := bd.Check(4, []float64{1.5}, components.PPTNorm)
	if !hasBookmark(bms, BookmarkCrash) {
		t.Error("expected biomass_crash bookmark")
	}
	// the peak resets, so a small further dip is not a second crash
	if bms := bd.Check(5, []float64{1}, components.PPTNorm); hasBookmark(bms, BookmarkCrash) {
		t.Error("crash reported twice")
	}
}

func TestBookmarkDetector_LossAndRecolonisation(t *testing.T) {
	bd := NewBookmarkDetector(2, []string{"shrub"})
	bd.Check(1, []float64{3}, components.PPTNorm)

	bms := bd.Check(2, []float64{0}, components.PPTNorm)
	if !hasBookmark(bms, BookmarkGroupLoss) {
		t.Fatal("expected group_loss bookmark")
	}
	if bms[0].Iter != 2 || bms[0].Year != 2 || bms[0].Group != "shrub" {
		t.Errorf("bookmark = %+v", bms[0])
	}

	for year := 3; year < 2+RecolonisationGap; year++ {
		bd.Check(year, []float64{0}, components.PPTNorm)
	}
	bms = bd.Check(2+RecolonisationGap, []float64{0.5}, components.PPTNorm)
	if !hasBookmark(bms, BookmarkRecolonised) {
		t.Error("expected recolonised bookmark")
	}
}

func TestBookmarkDetector_FirstArrivalIsQuiet(t *testing.T) {
	bd := NewBookmarkDetector(1, []string{"forb"})
	for year := 1; year <= 10; year++ {
		bd.Check(year, []float64{0}, components.PPTNorm)
	}
	if bms := bd.Check(11, []float64{1}, components.PPTNorm); len(bms) != 0 {
		t.Errorf("first establishment should not be a bookmark: %v", bms)
	}
}

func TestBookmarkDetector_Drought(t *testing.T) {
	bd := NewBookmarkDetector(1, nil)
	var count int
	for year, wd := range []components.PPTClass{
		components.PPTDry, components.PPTDry, components.PPTDry, components.PPTDry,
		components.PPTWet, components.PPTDry,
	} {
		if hasBookmark(bd.Check(year+1, nil, wd), BookmarkDrought) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("drought bookmarks = %d, want 1", count)
	}
}
