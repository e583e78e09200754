package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CleanString(t *testing.T) {
	assert.Equal(t, "Mlimani Academy", CleanString("  Mlimani Academy \t"))
	assert.Equal(t, "asha@example.com", CleanString(" Asha@Example.com ", true))
	assert.Equal(t, "", CleanString("   "))
}

func Test_AtoiOr(t *testing.T) {
	assert.Equal(t, 42, AtoiOr("42", 0))
	assert.Equal(t, 0, AtoiOr("", 0))
	assert.Equal(t, 7, AtoiOr("abc", 7))
	assert.Equal(t, 7, AtoiOr("4.2", 7))
	assert.Equal(t, -3, AtoiOr("-3", 0))
}
