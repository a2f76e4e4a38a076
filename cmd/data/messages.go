package main

import (
	"github.com/rxtech-lab/argo-histdata/pkg/histcache"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// CoverageLoadedMsg carries the opened cache and its series listing.
type CoverageLoadedMsg struct {
	Store histcache.Store
	Rows  []histcache.CoverageRow
}

// BarsLoadedMsg carries the bars of the selected series.
type BarsLoadedMsg struct {
	Bars []types.Bar
}

// LoadErrorMsg indicates a cache read failed.
type LoadErrorMsg struct {
	Err error
}
