package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampInt16SaturatesHigh(t *testing.T) {
	assert.Equal(t, int16(32767), clampInt16(100000))
}

func TestClampInt16SaturatesLow(t *testing.T) {
	assert.Equal(t, int16(-32768), clampInt16(-100000))
}

func TestClampInt16PassesThroughInRange(t *testing.T) {
	assert.Equal(t, int16(1234), clampInt16(1234))
	assert.Equal(t, int16(0), clampInt16(0))
	assert.Equal(t, int16(-1234), clampInt16(-1234))
}
