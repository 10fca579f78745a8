package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation means the user input cannot start a search, e.g. an address
	// typed freely instead of picked from the suggestions.
	ErrValidation = errors.New("validation error")

	// ErrResolution means a selection has no geometry that could be resolved.
	ErrResolution = errors.New("selection has no geometry")

	// ErrNotFound means the provider answered but had nothing for the request.
	ErrNotFound = errors.New("not found")

	// ErrNoResults is the empty answer of a venue search.
	ErrNoResults = errors.New("no results")

	// ErrProvider is matched by every *ProviderError.
	ErrProvider = errors.New("provider error")

	// ErrTransientFetch covers weather transport and decoding failures.
	ErrTransientFetch = errors.New("transient fetch failure")
)

// ProviderError is a transport or status failure of an external provider.
type ProviderError struct {
	Provider string // places, distance, geocode, weather
	Status   string // provider status sentinel, e.g. OVER_QUERY_LIMIT
	Code     int    // HTTP status code, 0 when the request never completed
	Err      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != "":
		return fmt.Sprintf("%s provider: status %s", e.Provider, e.Status)
	case e.Code != 0:
		return fmt.Sprintf("%s provider: http %d", e.Provider, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
	default:
		return e.Provider + " provider: unknown failure"
	}
}

// Is lets errors.Is(err, ErrProvider) match any ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
