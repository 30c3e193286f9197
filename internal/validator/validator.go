package validator

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dexmeta/meta-swap-api/internal/errors"
)

// maxUint256 bounds every amount accepted at ingress.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// NormalizeAddress lowercases an address and strips surrounding whitespace.
// It is idempotent.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAddress normalizes an address and checks the fixed-width hex form:
// exactly 42 characters beginning 0x.
func ValidateAddress(field, address string) (string, error) {
	address = NormalizeAddress(address)
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return "", errors.NewValidation(fmt.Sprintf("%s must be a 42-character address beginning 0x", field))
	}
	for _, c := range address[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", errors.NewValidation(fmt.Sprintf("%s contains non-hex characters", field))
		}
	}
	return address, nil
}

// ValidateOptionalAddress validates an address when present; empty passes
// through unchanged.
func ValidateOptionalAddress(field, address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", nil
	}
	return ValidateAddress(field, address)
}

// ValidateSellAmount parses a positive integer string fitting 256 bits.
func ValidateSellAmount(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.NewValidation("sellAmount is required")
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, errors.NewValidation("sellAmount must be a decimal integer")
	}
	if value.Sign() <= 0 {
		return nil, errors.NewValidation("sellAmount must be greater than 0")
	}
	if value.Cmp(maxUint256) > 0 {
		return nil, errors.NewValidation("sellAmount exceeds 256 bits")
	}
	return value, nil
}
