// Package models contains shared data models used across the GuestPulse codebase.
package models

import "time"

// Review is one guest feedback record ingested from an external source.
// Reviews are immutable after ingestion.
type Review struct {
	ID        string  `db:"id"         json:"id"`
	Outlet    string  `db:"outlet"     json:"outlet"`
	Brand     string  `db:"brand"      json:"brand"`
	Platform  string  `db:"platform"   json:"platform"`
	Rating    *int    `db:"rating"     json:"rating,omitempty"`
	Text      string  `db:"text"       json:"text"`
	Language  *string `db:"language"   json:"language,omitempty"`
	Timestamp string  `db:"timestamp"  json:"timestamp"`
	Username  *string `db:"username"   json:"username,omitempty"`
	OrderType *string `db:"order_type" json:"order_type,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RatingOr returns the review rating, or def when no rating was given.
func (r Review) RatingOr(def int) int {
	if r.Rating == nil {
		return def
	}
	return *r.Rating
}
