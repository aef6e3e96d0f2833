// Package ui renders the solver's HTML dashboard as hand-built
// templ.Component values — no .templ source is available to generate
// from, so each page below plays the role the templ compiler would
// normally fill, writing escaped HTML directly against io.Writer.
package ui

import "time"

// SolveListItem is one row of the solve list page.
type SolveListItem struct {
	ID           string
	State        string
	NRows        int
	NCols        int
	Iterations   int
	ResultString string
	StartTime    time.Time
	EndTime      *time.Time
	Error        string
}

// SolveDetail is the full detail page payload for one solve.
type SolveDetail struct {
	ID           string
	State        string
	NRows        int
	NCols        int
	Iterations   int
	MaxIters     int
	ResultString string
	StartTime    time.Time
	EndTime      *time.Time
	ElapsedSec   float64
	Error        string
}
