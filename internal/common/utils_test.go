package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStation(t *testing.T) {
	assert.Equal(t, "KSFO", NormalizeStation(" ksfo\t"))
	assert.Equal(t, "", NormalizeStation("   "))
}

func TestEmptyIfNil(t *testing.T) {
	var s []int
	assert.NotNil(t, EmptyIfNil(s))
	assert.Empty(t, EmptyIfNil(s))
	assert.Equal(t, []int{1}, EmptyIfNil([]int{1}))
}
