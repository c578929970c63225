package view

import (
	"github.com/bkonkle/fleetdash/internal/fleet"
)

// StatRow is one labelled counter.
type StatRow struct {
	Label string
	Value int
}

// StatGroup is a titled set of counters.
type StatGroup struct {
	Title string
	Rows  []StatRow
}

// StatsView is the drawn form of a detailed stats snapshot.
type StatsView struct {
	Groups []StatGroup
}

// RenderStatsView groups the two counter sets for display.
func RenderStatsView(s fleet.DetailedStats) StatsView {
	return StatsView{
		Groups: []StatGroup{
			breakdownGroup("Successful", s.Successful),
			breakdownGroup("Confirm Human", s.ConfirmHuman),
		},
	}
}

func breakdownGroup(title string, b fleet.Breakdown) StatGroup {
	return StatGroup{
		Title: title,
		Rows: []StatRow{
			{Label: "First request", Value: b.FirstRequest},
			{Label: "Second request", Value: b.SecondRequest},
			{Label: "Multiple numbers", Value: b.MultipleNumbers},
		},
	}
}
