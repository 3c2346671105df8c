package model

import "time"

// Officer is an on-duty officer returned by the roster service. The roster is
// queried, never owned; DistanceKm is computed locally for ranking.
type Officer struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	BadgeNumber string       `json:"badge_number,omitempty"`
	Status      string       `json:"status,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	LastUpdate  *time.Time   `json:"last_update,omitempty"`
	DistanceKm  float64      `json:"distance_km"`
}

// OfficerStatus is the state of the local officer session.
type OfficerStatus string

const (
	OnPatrol   OfficerStatus = "on_patrol"
	Responding OfficerStatus = "responding"
	OnScene    OfficerStatus = "on_scene"
)

func (s OfficerStatus) String() string {
	switch s {
	case OnPatrol:
		return "On Patrol"
	case Responding:
		return "Responding"
	case OnScene:
		return "On Scene"
	default:
		return string(s)
	}
}
