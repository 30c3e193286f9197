package providers

import (
	"regexp"

	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/logger"
)

// ErrorRule maps an upstream message pattern to a failure kind. Rules live
// beside each adapter's parser.
type ErrorRule struct {
	Pattern *regexp.Regexp
	Kind    errors.Kind
}

// Rule compiles a case-insensitive pattern rule.
func Rule(pattern string, kind errors.Kind) ErrorRule {
	return ErrorRule{Pattern: regexp.MustCompile(`(?i)` + pattern), Kind: kind}
}

// ClassifyMessage matches an upstream error message against an adapter's
// rule table. Unknown messages classify as ProviderUnspecified.
func ClassifyMessage(rules []ErrorRule, provider, message string) *errors.ProviderError {
	for _, rule := range rules {
		if rule.Pattern.MatchString(message) {
			return errors.New(rule.Kind, provider, message)
		}
	}
	return errors.New(errors.ProviderUnspecified, provider, message)
}

// ClassifyError turns any failure from an upstream call into the typed
// taxonomy: timeouts and aborts are ProviderTimeout, non-2xx bodies go
// through the adapter's rule table, everything else is ProviderUnspecified.
// Parse failures are the adapter's to raise directly via errors.NewParse.
func ClassifyError(rules []ErrorRule, provider string, err error, extractMessage func([]byte) string) *errors.ProviderError {
	if IsTimeout(err) {
		perr := errors.NewTimeout(provider, err.Error())
		logger.Warn(perr.Error(), logger.Fields{"provider": provider, "reason": perr.Message})
		return perr
	}
	if upstream, ok := err.(*UpstreamError); ok {
		message := string(upstream.Body)
		if extractMessage != nil {
			if extracted := extractMessage(upstream.Body); extracted != "" {
				message = extracted
			}
		}
		perr := ClassifyMessage(rules, provider, message).
			WithDetail("url", upstream.URL).
			WithDetail("status", upstream.Status)
		logger.Warn(perr.Error(), logger.Fields{
			"provider": provider,
			"reason":   perr.Message,
			"status":   upstream.Status,
		})
		return perr
	}
	perr := errors.New(errors.ProviderUnspecified, provider, err.Error())
	logger.Warn(perr.Error(), logger.Fields{"provider": provider, "reason": perr.Message})
	return perr
}
