package models

import (
	"regexp"
	"strings"
)

// SwapSource is one liquidity venue participating in a quote, with its
// proportion in percent [0,100]. Order in a quote is informational only.
type SwapSource struct {
	Name       string  `json:"name"`
	Proportion float64 `json:"proportion"`
}

var (
	camelBoundary1 = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelBoundary2 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

func camelToSnake(field string) string {
	field = camelBoundary1.ReplaceAllString(field, `${1}_${2}`)
	return strings.ToLower(camelBoundary2.ReplaceAllString(field, `${1}_${2}`))
}

// NewSwapSource builds a SwapSource with the venue name normalized to the
// canonical CapCamel form (e.g. "uniswap_v2" and "UniswapV2" both become
// "UniswapV2").
func NewSwapSource(name string, proportion float64) SwapSource {
	snake := camelToSnake(name)
	parts := strings.Split(snake, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return SwapSource{Name: strings.Join(parts, ""), Proportion: proportion}
}
