package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("pkg.Fn", []interface{}{1, "0xabc"}, KW{Name: "x", Value: 1}, KW{Name: "y", Value: "z"})
	b := Key("pkg.Fn", []interface{}{1, "0xabc"}, KW{Name: "y", Value: "z"}, KW{Name: "x", Value: 1})
	assert.Equal(t, a, b, "keyword order must not change the key")
	assert.Len(t, a, 32)
}

func TestKeyDiscriminates(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "different function",
			a:    Key("pkg.Fn", []interface{}{1}),
			b:    Key("pkg.Other", []interface{}{1}),
		},
		{
			name: "different args",
			a:    Key("pkg.Fn", []interface{}{1, 2}),
			b:    Key("pkg.Fn", []interface{}{2, 1}),
		},
		{
			name: "different kwarg value",
			a:    Key("pkg.Fn", nil, KW{Name: "x", Value: 1}),
			b:    Key("pkg.Fn", nil, KW{Name: "x", Value: 2}),
		},
		{
			name: "kwarg presence",
			a:    Key("pkg.Fn", nil),
			b:    Key("pkg.Fn", nil, KW{Name: "x", Value: ""}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a, tt.b)
		})
	}
}
