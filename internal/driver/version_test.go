package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "1", 0},
		{"1", "1.0", 0},
		{"v1.2.0", "1.2", 0},
		{"", "0", 0},
		{"1", "2", -1},
		{"1.9", "1.10", -1},
		{"2.0.1", "2.0", 1},
		{"1.0.0", "1.0.rc1", -1},
		{"1.0.alpha", "1.0.beta", -1},
		{"10", "9", 1},
		{"V2", "v2", 0},
		{"vV1", "1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
			assert.Equal(t, -tt.want, CompareVersions(tt.b, tt.a), "order must be antisymmetric")
		})
	}
}

func TestVersionUnmarshalYAML(t *testing.T) {
	var d struct {
		A Version `yaml:"a"`
		B Version `yaml:"b"`
		C Version `yaml:"c"`
	}
	err := yaml.Unmarshal([]byte("a: 2\nb: 1.10\nc: \" v3.1 \"\n"), &d)
	assert.NoError(t, err)
	assert.Equal(t, Version("2"), d.A)
	assert.Equal(t, Version("1.10"), d.B)
	assert.Equal(t, Version("v3.1"), d.C)
	assert.True(t, Version("1.9").Less(d.B))

	err = yaml.Unmarshal([]byte("a: [1, 2]\n"), &d)
	assert.Error(t, err)
}
