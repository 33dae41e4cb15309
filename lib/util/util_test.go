package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIn(t *testing.T) {
	assert.True(t, In([]string{"defi", "nft"}, "nft"))
	assert.False(t, In([]string{"defi", "nft"}, "NFT"))
	assert.False(t, In(nil, "defi"))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"nft", "defi", "market"}, Unique([]string{"nft", "defi", "nft", "market", "defi"}))
	assert.Empty(t, Unique([]string(nil)))
}
