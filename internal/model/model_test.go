package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusLost, true},
		{StatusFound, true},
		{"lost", false},
		{"Claimed", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.Valid(), "Status(%q).Valid()", tt.status)
	}
}

func TestParseItemFilter(t *testing.T) {
	tests := []struct {
		name             string
		q, status, claim string
		want             ItemFilter
	}{
		{"empty", "", "", "", ItemFilter{}},
		{"trims query", "  wallet ", "", "", ItemFilter{Query: "wallet"}},
		{"status and claim", "", "Lost", "unclaimed", ItemFilter{Status: StatusLost, Claim: ClaimUnclaimed}},
		{"found claimed", "keys", "Found", "claimed", ItemFilter{Query: "keys", Status: StatusFound, Claim: ClaimClaimed}},
		// Unknown values fall back to unset.
		{"unknown status", "", "Stolen", "", ItemFilter{}},
		{"lowercase status", "", "lost", "", ItemFilter{}},
		{"unknown claim", "", "", "maybe", ItemFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseItemFilter(tt.q, tt.status, tt.claim))
		})
	}
}

func TestActorIsAuthenticated(t *testing.T) {
	var anon *Actor
	assert.False(t, anon.IsAuthenticated())
	assert.False(t, (&Actor{}).IsAuthenticated())
	assert.True(t, (&Actor{UserID: 1, Username: "alice"}).IsAuthenticated())
}

func TestItemUpdateEmpty(t *testing.T) {
	assert.True(t, ItemUpdate{}.Empty())

	version := int64(3)
	assert.True(t, ItemUpdate{IfVersion: &version}.Empty())

	claimed := true
	assert.False(t, ItemUpdate{Claimed: &claimed}.Empty())
}

func TestItemImageKey(t *testing.T) {
	var nilItem *Item
	assert.Equal(t, "", nilItem.ImageKey())
	assert.Equal(t, "", (&Item{}).ImageKey())

	key := "abc.png"
	assert.Equal(t, "abc.png", (&Item{Image: &key}).ImageKey())
}
