// Package filter computes the visible subset of the listing set for a
// criteria object. It is pure: same inputs, same output, no mutation.
package filter

import (
	"strconv"
	"strings"

	"github.com/yourorg/listings-api/feed"
	"github.com/yourorg/listings-api/internal/canon"
)

// Criteria is a set of independent predicates. Zero-valued fields impose
// no constraint; all present fields are AND-combined.
type Criteria struct {
	Town         string  `json:"town,omitempty"`
	Development  string  `json:"development,omitempty"`
	Region       string  `json:"region,omitempty"`
	Reference    string  `json:"reference,omitempty"`
	PropertyType string  `json:"propertyType,omitempty"`
	MinBeds      int     `json:"minBeds,omitempty"`
	MinPrice     float64 `json:"minPrice,omitempty"`
	MaxPrice     float64 `json:"maxPrice,omitempty"`
}

// IsZero reports whether the criteria constrain nothing.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// Apply returns the records matching every present criterion, preserving
// input order.
func Apply(records []feed.Property, c Criteria) []feed.Property {
	out := make([]feed.Property, 0, len(records))
	for _, p := range records {
		if Matches(p, c) {
			out = append(out, p)
		}
	}
	return out
}

// Matches evaluates one record. Town, development and region match exact
// after folding; reference and type match as folded substrings.
func Matches(p feed.Property, c Criteria) bool {
	if c.Town != "" && canon.Fold(p.Town) != canon.Fold(c.Town) {
		return false
	}
	if c.Development != "" && canon.Fold(p.Title) != canon.Fold(c.Development) {
		return false
	}
	if c.Region != "" && canon.Fold(p.Region) != canon.Fold(c.Region) {
		return false
	}
	if c.Reference != "" && !strings.Contains(canon.Fold(p.Reference), canon.Fold(c.Reference)) {
		return false
	}
	if c.PropertyType != "" && !strings.Contains(canon.Fold(p.PropertyType), canon.Fold(c.PropertyType)) {
		return false
	}
	if c.MinBeds > 0 && bedsCount(p.Beds) < c.MinBeds {
		return false
	}
	if c.MinPrice > 0 && p.Price < c.MinPrice {
		return false
	}
	if c.MaxPrice > 0 && p.Price > c.MaxPrice {
		return false
	}
	return true
}

// bedsCount parses the string-encoded bed count leniently; garbage is 0.
func bedsCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
