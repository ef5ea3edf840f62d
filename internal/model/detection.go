package model

import (
	"slices"
	"time"
)

// ScreenID identifies a physical display, stable within a session.
type ScreenID int

// Status is the externally observable state of the detection loop.
type Status struct {
	Running bool `json:"is_running"`
}

// Matches is a deduplicated set of matched phrases produced by one detection
// cycle. An empty set means nothing was found.
type Matches map[string]struct{}

func NewMatches(phrases ...string) Matches {
	m := make(Matches, len(phrases))
	for _, p := range phrases {
		m[p] = struct{}{}
	}
	return m
}

// Union adds all phrases of other into m.
func (m Matches) Union(other Matches) {
	for p := range other {
		m[p] = struct{}{}
	}
}

func (m Matches) Empty() bool { return len(m) == 0 }

// Sorted returns the phrases in a stable order.
func (m Matches) Sorted() []string {
	ret := make([]string, 0, len(m))
	for p := range m {
		ret = append(ret, p)
	}
	slices.Sort(ret)
	return ret
}

// Notification is the payload of the notified event, emitted for every cycle
// which matched at least one phrase.
type Notification struct {
	ID      string    `json:"id"`
	Phrases []string  `json:"phrases"`
	At      time.Time `json:"at"`
}
