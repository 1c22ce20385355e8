package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPortfolio(t *testing.T) {
	p := NewPortfolio("Infra", "infrastructure services", "fred")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Infra", p.Name)
	assert.Equal(t, "fred", p.Owner)
	assert.False(t, p.Discarded())
	assert.Equal(t, ResourceRef{Type: ResourceTypePortfolio, ID: p.ID}, p.Ref())
}

func TestPortfolioApply(t *testing.T) {
	p := NewPortfolio("Infra", "old", "fred")
	name := "Renamed"

	p.Apply(PortfolioUpdate{Name: &name})

	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, "old", p.Description, "nil fields are left untouched")
}

func TestPortfolioCopy(t *testing.T) {
	src := NewPortfolio("Infra", "infrastructure services", "fred")
	now := time.Now()
	src.DiscardedAt = &now

	cp := src.Copy("Copy of Infra", "barney")

	assert.NotEqual(t, src.ID, cp.ID)
	assert.Equal(t, "Copy of Infra", cp.Name)
	assert.Equal(t, src.Description, cp.Description)
	assert.Equal(t, "barney", cp.Owner)
	assert.False(t, cp.Discarded(), "a copy always starts active")
}

func TestNewRestoreTokenValue(t *testing.T) {
	first, err := NewRestoreTokenValue()
	require.NoError(t, err)
	second, err := NewRestoreTokenValue()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
