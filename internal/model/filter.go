package model

import "strings"

// ClaimFilter restricts a search by claim state.
type ClaimFilter string

// Claim filters. The zero value matches every item.
const (
	ClaimAny       ClaimFilter = ""
	ClaimClaimed   ClaimFilter = "claimed"
	ClaimUnclaimed ClaimFilter = "unclaimed"
)

// ItemFilter is the set of optional predicates of a board search.
// All set predicates are combined with AND; Query matches name OR description.
type ItemFilter struct {
	Query  string
	Status Status
	Claim  ClaimFilter
}

// ParseItemFilter builds a filter from raw query values.
// Unknown status or claim values are treated as unset.
func ParseItemFilter(q, status, claim string) ItemFilter {
	f := ItemFilter{Query: strings.TrimSpace(q)}

	if s := Status(strings.TrimSpace(status)); s.Valid() {
		f.Status = s
	}

	switch c := ClaimFilter(strings.TrimSpace(claim)); c {
	case ClaimClaimed, ClaimUnclaimed:
		f.Claim = c
	}

	return f
}
