package errors

import (
	"fmt"
	"net/http"
)

// Owner identifies who is responsible for a failure. It selects the HTTP
// status code returned to the caller.
type Owner string

const (
	OwnerUser     Owner = "user"
	OwnerProvider Owner = "provider"
	OwnerService  Owner = "service"
)

// StatusCode returns the HTTP status code associated with an owner.
func (o Owner) StatusCode() int {
	switch o {
	case OwnerUser:
		return http.StatusBadRequest
	case OwnerProvider:
		return http.StatusConflict
	default:
		return http.StatusExpectationFailed
	}
}

// Kind is the closed set of failure kinds that can surface from the
// aggregation engine and its provider adapters.
type Kind string

const (
	// User-owned: the request itself cannot succeed as given.
	InsufficientBalance   Kind = "INSUFFICIENT_BALANCE"
	InsufficientAllowance Kind = "INSUFFICIENT_ALLOWANCE"
	InvalidTokens         Kind = "INVALID_TOKENS"
	EstimationFailed      Kind = "ESTIMATION_FAILED"

	// Provider-owned: the upstream aggregator could not serve the request.
	InsufficientLiquidity Kind = "INSUFFICIENT_LIQUIDITY"
	PriceUnavailable      Kind = "PRICE_UNAVAILABLE"
	ProviderTimeout       Kind = "PROVIDER_TIMEOUT"
	ProviderUnspecified   Kind = "PROVIDER_UNSPECIFIED"

	// Our-owned: a defect or configuration gap on our side.
	ValidationFailed       Kind = "VALIDATION_FAILED"
	ParseResponse          Kind = "PARSE_RESPONSE"
	ProviderNotFound       Kind = "PROVIDER_NOT_FOUND"
	SpenderAddressNotFound Kind = "SPENDER_ADDRESS_NOT_FOUND"
)

// Owner returns the responsible party for a failure kind.
func (k Kind) Owner() Owner {
	switch k {
	case InsufficientBalance, InsufficientAllowance, InvalidTokens, EstimationFailed:
		return OwnerUser
	case InsufficientLiquidity, PriceUnavailable, ProviderTimeout, ProviderUnspecified:
		return OwnerProvider
	default:
		return OwnerService
	}
}

// logMessages carry the human-readable summary used in log lines and in the
// error string shown to callers.
var logMessages = map[Kind]string{
	InsufficientBalance:    "User has not enough balance",
	InsufficientAllowance:  "User has not enough allowance",
	InvalidTokens:          "Invalid tokens",
	EstimationFailed:       "Cannot estimate swap",
	InsufficientLiquidity:  "Cannot find a liquidity pools for swap",
	PriceUnavailable:       "Invalid price",
	ProviderTimeout:        "Provider is unavailable",
	ProviderUnspecified:    "Unhandled provider error",
	ValidationFailed:       "Swap validation failed",
	ParseResponse:          "Cannot parse response",
	ProviderNotFound:       "Provider not found",
	SpenderAddressNotFound: "Spender address not found",
}

// LogMessage returns the summary line for a kind.
func (k Kind) LogMessage() string {
	if msg, ok := logMessages[k]; ok {
		return msg
	}
	return string(k)
}

// ProviderError is the typed error carried through the aggregation engine.
// Provider is the adapter name the failure originated from (empty for
// failures raised before a provider was chosen), Message is the upstream or
// validation detail, and Details holds structured context for logging.
type ProviderError struct {
	Kind     Kind
	Provider string
	Message  string
	Details  map[string]interface{}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s. Source: %s", e.Kind.LogMessage(), e.Provider)
	}
	return e.Kind.LogMessage()
}

// StatusCode returns the HTTP status code for the error's owner.
func (e *ProviderError) StatusCode() int {
	return e.Kind.Owner().StatusCode()
}

// Is makes ProviderError compatible with errors.Is against kind sentinels
// created with New(kind, ...).
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches one structured detail and returns the error for
// chaining.
func (e *ProviderError) WithDetail(key string, value interface{}) *ProviderError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a ProviderError of the given kind.
func New(kind Kind, provider, message string) *ProviderError {
	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Message:  message,
		Details:  make(map[string]interface{}),
	}
}

// Common error constructors

// NewProviderNotFound reports an unknown provider name.
func NewProviderNotFound(provider string) *ProviderError {
	return New(ProviderNotFound, provider, fmt.Sprintf("provider '%s' is not supported", provider))
}

// NewSpenderAddressNotFound reports a missing spender address for a chain.
func NewSpenderAddressNotFound(provider string, chainID uint64) *ProviderError {
	return New(SpenderAddressNotFound, provider, fmt.Sprintf("no spender address for chain %d", chainID))
}

// NewValidation reports an invalid caller input.
func NewValidation(message string) *ProviderError {
	return New(ValidationFailed, "", message)
}

// NewParse reports a provider response that could not be decoded.
func NewParse(provider, message string) *ProviderError {
	return New(ParseResponse, provider, message)
}

// NewTimeout reports an upstream deadline or connection abort.
func NewTimeout(provider, message string) *ProviderError {
	return New(ProviderTimeout, provider, message)
}

// ErrorResponse is the JSON body returned to HTTP callers.
type ErrorResponse struct {
	Error    string `json:"error"`
	Reason   string `json:"reason"`
	Provider string `json:"provider,omitempty"`
}

// ToErrorResponse converts a ProviderError to its HTTP body.
func ToErrorResponse(err *ProviderError) ErrorResponse {
	return ErrorResponse{
		Error:    err.Error(),
		Reason:   err.Message,
		Provider: err.Provider,
	}
}
