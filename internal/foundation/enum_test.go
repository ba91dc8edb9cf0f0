package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type color string

func TestEnum(t *testing.T) {
	e := NewEnum("color", map[string]color{"Red": "red", "blue": "blue"})

	v, err := e.Parse("  RED ")
	require.NoError(t, err)
	assert.Equal(t, color("red"), v)

	_, err = e.Parse("green")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blue, red")

	assert.Equal(t, color("blue"), e.ParseOr("nope", "blue"))
	assert.Equal(t, []string{"blue", "red"}, e.Keys())
}
