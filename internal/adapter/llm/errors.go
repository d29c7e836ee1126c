// Package llm implements completion providers.
package llm

import "errors"

// ErrProviderFailure wraps every transport or API failure from a provider.
var ErrProviderFailure = errors.New("completion provider failure")
