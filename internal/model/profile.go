package model

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the sales stage of a company profile
type Status string

const (
	StatusNew       Status = "New"
	StatusContacted Status = "Contacted"
	StatusProposal  Status = "Proposal"
	StatusWon       Status = "Won"
	StatusLost      Status = "Lost"
)

// transitions lists the user-driven moves allowed from each status
var transitions = map[Status][]Status{
	StatusNew:       {StatusContacted},
	StatusContacted: {StatusProposal},
	StatusProposal:  {StatusWon, StatusLost},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusProposal, StatusWon, StatusLost:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

// CanTransition reports whether moving from s to next is allowed
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Client is the persistent per-company profile (table "clients")
type Client struct {
	Name       string                      `json:"name" gorm:"primaryKey"`
	Summary    string                      `json:"summary"`
	SectorTags datatypes.JSONSlice[string] `json:"sector_tags"`
	Status     Status                      `json:"status" gorm:"default:New"`
	Lat        *float64                    `json:"lat"`
	Lon        *float64                    `json:"lon"`
	Confidence float64                     `json:"confidence"`
	LandFlag   bool                        `json:"land_flag"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// TableName pins the table name used by the dashboard
func (Client) TableName() string { return "clients" }

// Signal is one persisted headline event for a company (table "signals").
// (company, headline) is unique.
type Signal struct {
	ID          uint     `json:"id" gorm:"primaryKey"`
	Company     string   `json:"company" gorm:"uniqueIndex:idx_signals_company_headline;index"`
	Headline    string   `json:"headline" gorm:"uniqueIndex:idx_signals_company_headline"`
	URL         string   `json:"url"`
	Date        string   `json:"date" gorm:"index"`
	SourceLabel string   `json:"source_label"`
	LandFlag    bool     `json:"land_flag"`
	SectorGuess string   `json:"sector_guess"`
	Relevance   float64  `json:"relevance_score"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	ReadFlag    bool     `json:"read_flag"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the table name used by the dashboard
func (Signal) TableName() string { return "signals" }
