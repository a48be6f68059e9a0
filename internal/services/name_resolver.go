package services

import (
	"strings"

	"github.com/careride/facility-backend/internal/models"
)

// NameResolver produces a display name for a trip's rider.
//
// The chain is: authenticated-profile name, then managed-client name, then
// a heuristic derived from the pickup address. The heuristic is a cosmetic
// best effort for rows whose managed-client reference no longer resolves;
// it always yields a non-empty string.
type NameResolver struct{}

// NewNameResolver creates a new NameResolver
func NewNameResolver() *NameResolver {
	return &NameResolver{}
}

// unit/suite tokens dropped by the address heuristic
var unitTokens = map[string]bool{
	"apt":   true,
	"apt.":  true,
	"unit":  true,
	"suite": true,
	"ste":   true,
	"ste.":  true,
	"fl":    true,
	"floor": true,
	"rm":    true,
	"room":  true,
}

// Resolve returns a display name for the trip's rider
func (r *NameResolver) Resolve(tw *models.TripWithRider) string {
	if tw.RiderFirstName != nil || tw.RiderLastName != nil {
		name := joinName(deref(tw.RiderFirstName), deref(tw.RiderLastName))
		if name != "" {
			return name
		}
	}

	if tw.ManagedName != nil {
		name := strings.TrimSpace(*tw.ManagedName)
		if name != "" {
			return name
		}
	}

	return r.fallbackName(tw.PickupAddress, tw.RiderID)
}

// fallbackName derives a label from the pickup address: the leading street
// number is stripped, unit/suite tokens are dropped, and the first two
// remaining words are kept. The short id fragment makes the label traceable
// back to the rider reference.
func (r *NameResolver) fallbackName(pickupAddress, riderID string) string {
	label := "Client"

	// Only the first comma-separated segment carries the street line.
	segment := pickupAddress
	if idx := strings.Index(segment, ","); idx >= 0 {
		segment = segment[:idx]
	}

	words := []string{}
	for i, word := range strings.Fields(segment) {
		if i == 0 && isStreetNumber(word) {
			continue
		}
		lower := strings.ToLower(word)
		if unitTokens[lower] || strings.HasPrefix(word, "#") {
			// Everything from the unit token on is apartment detail.
			break
		}
		words = append(words, word)
		if len(words) == 2 {
			break
		}
	}

	if len(words) > 0 {
		label = strings.Join(words, " ")
	}

	return label + " (Managed) " + shortID(riderID)
}

// isStreetNumber reports whether the token looks like a leading street
// number, e.g. "123" or "123B"
func isStreetNumber(token string) bool {
	if token == "" {
		return false
	}
	digits := 0
	for i, ch := range token {
		if ch >= '0' && ch <= '9' {
			digits++
			continue
		}
		// Allow a single trailing letter ("123B") and unit separators.
		if i > 0 && i == len(token)-1 && ((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')) {
			continue
		}
		if ch == '-' || ch == '/' {
			continue
		}
		return false
	}
	return digits > 0
}

// shortID returns the first 8 characters of an id
func shortID(id string) string {
	if len(id) <= 8 {
		if id == "" {
			return "unknown"
		}
		return id
	}
	return id[:8]
}

func joinName(first, last string) string {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	switch {
	case first == "" && last == "":
		return ""
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
