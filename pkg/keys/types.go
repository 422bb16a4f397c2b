package keys

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/docvault/pkg/rbac"
	"github.com/platinummonkey/docvault/pkg/secrets"
)

// Provider is an AI vendor an API key belongs to.
type Provider string

const (
	ProviderGroq      Provider = "groq"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists the supported providers.
var Providers = []Provider{ProviderGroq, ProviderOpenAI, ProviderAnthropic}

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProvider, s)
}

// DefaultLabel is the label used when none is given.
func (p Provider) DefaultLabel() string {
	return string(p) + " key"
}

var (
	ErrNotFound        = errors.New("api key not found")
	ErrInvalidProvider = errors.New("unsupported provider")
	ErrEmptySecret     = errors.New("api key is required")
	// ErrNoUsableKey means no active key exists or the stored one no longer
	// authenticates; the user has to enter the key again.
	ErrNoUsableKey = errors.New("no usable api key, please re-enter it")
	ErrForbidden   = errors.New("forbidden")
)

// ForbiddenError carries the decision that denied an operation.
type ForbiddenError struct {
	Decision rbac.Decision
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Decision.Reason
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// APIKey is a row of ai_api_keys. The encrypted triple never leaves the
// service in JSON.
type APIKey struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Provider  Provider                `json:"provider"`
	Label     string                  `json:"label"`
	IsActive  bool                    `json:"is_active"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Secret    secrets.EncryptedSecret `json:"-"`
}
