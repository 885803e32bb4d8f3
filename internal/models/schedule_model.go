package models

import "time"

type ScheduleStatus string

const (
	ScheduleStatusUpcoming  ScheduleStatus = "upcoming"
	ScheduleStatusClaimed   ScheduleStatus = "claimed"
	ScheduleStatusPublished ScheduleStatus = "published"
	ScheduleStatusFailed    ScheduleStatus = "failed"
)

// ResultErrorKey holds a schedule-level failure in Schedule.Results.
const ResultErrorKey = "_error"

type Schedule struct {
	ID         string             `json:"id"`
	OwnerID    string             `json:"owner_id"`
	ProductID  string             `json:"product_id,omitempty"`
	Platforms  []string           `json:"platforms"`
	RunAt      time.Time          `json:"run_at"`
	Timezone   string             `json:"timezone,omitempty"`
	Status     ScheduleStatus     `json:"status"`
	Results    map[string]Outcome `json:"results,omitempty"`
	ClaimToken string             `json:"claim_token,omitempty"`
	ClaimedAt  *time.Time         `json:"claimed_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	ModifiedAt time.Time          `json:"modified_at"`
}

// CanTransitionTo reports whether a schedule in status s may move to next.
// Terminal statuses never change. A claim may be released back to upcoming
// before any platform was attempted.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	switch s {
	case ScheduleStatusUpcoming:
		return next == ScheduleStatusClaimed || next == ScheduleStatusPublished || next == ScheduleStatusFailed
	case ScheduleStatusClaimed:
		return next == ScheduleStatusPublished || next == ScheduleStatusFailed || next == ScheduleStatusUpcoming
	default:
		return false
	}
}

func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusPublished || s == ScheduleStatusFailed
}

func (s *Schedule) IsDue(now time.Time) bool {
	return s.Status == ScheduleStatusUpcoming && !s.RunAt.After(now)
}

// RequestedPlatforms returns the schedule's platforms with duplicates removed,
// keeping the first occurrence order.
func (s *Schedule) RequestedPlatforms() []string {
	seen := make(map[string]struct{}, len(s.Platforms))
	out := make([]string, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
