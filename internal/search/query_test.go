package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuery(t *testing.T) {
	q, err := NewQuery("  Golang \t Tutorial  ", 5)
	require.NoError(t, err)
	assert.Equal(t, "golang tutorial", q.Normalized)
	assert.Equal(t, "Golang Tutorial", q.Text())
	assert.Equal(t, 5, q.MaxResults)

	_, err = NewQuery("\n\t ", 5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewQuery("ok", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNormalizeQuery_CaseFolding(t *testing.T) {
	assert.Equal(t, NormalizeQuery("STRASSE"), NormalizeQuery("straße"))
	assert.Equal(t, "上海 咖啡", NormalizeQuery(" 上海   咖啡 "))
}
