package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is returned by providers for failed completions.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string

	// Quota is set for rate-limit and overload responses. Quota errors must not be retried.
	Quota bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}

	return fmt.Sprintf("%s api error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsQuotaError reports whether err is a provider rate-limit error.
func IsQuotaError(err error) bool {
	var providerErr *ProviderError

	return errors.As(err, &providerErr) && providerErr.Quota
}

// IsNotFound reports whether the provider answered 404, which for Gemini means the model is gone.
func IsNotFound(err error) bool {
	var providerErr *ProviderError

	return errors.As(err, &providerErr) && providerErr.StatusCode == http.StatusNotFound
}

func isQuotaStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}
