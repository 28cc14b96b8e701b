package feed

import "time"

// Source pairs a feed URL with the region label stamped onto every record
// it yields. The region is never present in the feed itself.
type Source struct {
	Region string
	URL    string
}

// Details carries the secondary numeric attributes of a listing. Surface is
// an alias of Built kept for consumers that still read the old field name.
type Details struct {
	Bathrooms float64 `json:"bathrooms"`
	Built     float64 `json:"built"`
	Surface   float64 `json:"surface"`
}

// Property is the canonical post-normalization record. Every field is
// defined after Normalize runs; absent or malformed feed values fall back
// to defaults instead of failing the record.
type Property struct {
	ExternalID   string    `json:"externalId"`
	Title        string    `json:"title"`
	Region       string    `json:"region"`
	Price        float64   `json:"price"`
	Town         string    `json:"town"`
	PropertyType string    `json:"propertyType"`
	Beds         string    `json:"beds"`
	Reference    string    `json:"reference"`
	Images       []string  `json:"images"`
	Details      Details   `json:"details"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
