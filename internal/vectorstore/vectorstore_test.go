package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memoryvault/memoryvault/internal/model"
)

func TestValidateCollectionName(t *testing.T) {
	cases := map[string]bool{
		"memories":      true,
		"_private":      true,
		"user_facts_1":  true,
		"":              false,
		"1leading":      false,
		"has space":     false,
		"drop table x;": false,
		"../etc/passwd": false,
	}
	for name, want := range cases {
		err := ValidateCollectionName(name)
		if want {
			assert.NoError(t, err, name)
		} else {
			assert.Error(t, err, name)
		}
	}
}

func TestFilter_MatchZeroValueMatchesEverything(t *testing.T) {
	var f Filter
	assert.True(t, f.Match(model.MemoryMetadata{UserID: "u1", AppID: "a1"}))
}

func TestFilter_MatchRequiresAllNonEmptyFields(t *testing.T) {
	f := Filter{UserID: "u1", SessionID: "s1"}

	assert.True(t, f.Match(model.MemoryMetadata{UserID: "u1", SessionID: "s1", AppID: "ignored"}))
	assert.False(t, f.Match(model.MemoryMetadata{UserID: "u2", SessionID: "s1"}))
	assert.False(t, f.Match(model.MemoryMetadata{UserID: "u1", SessionID: "other"}))
}
