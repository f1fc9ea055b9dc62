package ux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginLabel(t *testing.T) {
	assert.Equal(t, "AI Generated", OriginLabel(true))
	assert.Equal(t, "Standard", OriginLabel(false))
}

func TestBadgeContainsLabel(t *testing.T) {
	s := DefaultStyles()
	assert.Contains(t, s.Badge("proposed", "proposed"), "proposed")
	assert.Contains(t, s.Badge("unknown", "mystery"), "mystery")
	assert.Contains(t, s.OriginBadge(true), "AI Generated")
}
