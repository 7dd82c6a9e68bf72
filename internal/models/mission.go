package models

import "time"

// Mission is a scheduled automation job as exposed by the control-plane API.
type Mission struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule"` // 5-field cron expression
	Enabled    bool       `json:"enabled"`
	Targeting  Targeting  `json:"targeting"`
	DailyQuota int        `json:"dailyQuota"`
	LastRunAt  *time.Time `json:"lastRunAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Targeting narrows the audience a mission acts on.
type Targeting struct {
	Keywords  []string `json:"keywords,omitempty"`
	Regions   []string `json:"regions,omitempty"`
	MinScore  float64  `json:"minScore,omitempty"`
	MaxPerRun int      `json:"maxPerRun,omitempty"`
}

// MissionRequest is the body of mission create and update calls.
type MissionRequest struct {
	Name       string    `json:"name"`
	Schedule   string    `json:"schedule"`
	Enabled    bool      `json:"enabled"`
	Targeting  Targeting `json:"targeting"`
	DailyQuota int       `json:"dailyQuota"`
}
