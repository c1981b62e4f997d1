package domain

import "time"

// Item is a single feed entry prepared for channel delivery.
// The GUID is the deduplication key: feed-provided guid when present,
// the entry link otherwise. Items are immutable; they live for one
// fetch cycle and are discarded after the delivery attempt.
type Item struct {
	GUID      string
	Title     string
	Summary   string
	Link      string
	ImageURL  string // empty when the entry carries no media
	Published time.Time
}

// HasImage reports whether the item carries media content.
func (i Item) HasImage() bool {
	return i.ImageURL != ""
}
