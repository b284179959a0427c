// internal/models/records.go
package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// RawRecord is a record as delivered by a source. Field names and nesting differ
// between sources; the normalize package maps it to a canonical record.
type RawRecord map[string]interface{}

// RecordKind selects the canonical shape a RawRecord is normalized into.
type RecordKind string

const (
	KindReview   RecordKind = "review"
	KindMenuItem RecordKind = "menu_item"
	KindCategory RecordKind = "category"
)

// ReviewRecord is the display form of a customer review.
type ReviewRecord struct {
	Text            string     `json:"text"`
	AuthorName      string     `json:"authorName"`
	StarRating      int        `json:"starRating"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	SourceVerified  bool       `json:"sourceVerified"`
	ProfilePhotoURL string     `json:"profilePhotoUrl,omitempty"`
}

// ItemID is the textual form of an upstream menu item id. Numeric ids are kept in
// base 10. An empty ItemID means the source did not send one.
type ItemID string

// IsZero reports whether the id is missing.
func (id ItemID) IsZero() bool { return id == "" }

// MarshalJSON writes canonical base 10 integers as JSON numbers and everything
// else ("007", "+5", "a-1") as strings.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ItemID(n.String())
	return nil
}

// MenuItemRecord is the display form of a menu item.
type MenuItemRecord struct {
	ID          ItemID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image"`
	Category    string `json:"category"`
	Featured    bool   `json:"featured"`
}

// Category is one entry of the webshop category listing.
type Category struct {
	ID   ItemID `json:"id"`
	Name string `json:"name"`
}
