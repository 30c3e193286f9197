package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSwapSourceNormalizesNames(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "uniswap_v2", want: "UniswapV2"},
		{in: "UniswapV2", want: "UniswapV2"},
		{in: "uniswapV3", want: "UniswapV3"},
		{in: "SushiSwap", want: "SushiSwap"},
		{in: "SUSHI", want: "Sushi"},
		{in: "curve", want: "Curve"},
		{in: "balancer_v2", want: "BalancerV2"},
		{in: "kyber_dmm", want: "KyberDmm"},
		{in: "DODO_V2", want: "DodoV2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			source := NewSwapSource(tt.in, 50)
			assert.Equal(t, tt.want, source.Name)
			assert.Equal(t, 50.0, source.Proportion)
		})
	}
}
