package models

import "time"

// TickReport summarizes one dispatch tick. It is informational only.
// Published, Failed and Errored keep growing after the tick returns, as the
// schedules it dispatched are finalized.
type TickReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Due        int       `json:"due"`
	Claimed    int       `json:"claimed"`
	Published  int       `json:"published"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	Stale      int       `json:"stale"`
}
