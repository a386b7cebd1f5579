package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport failures (timeouts, resets, non-2xx)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeBlocked represents a page that looks like an anti-bot challenge
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeIdentity represents an exhausted identity pool
	ErrorTypeIdentity ErrorType = "identity"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents output sink errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type       ErrorType
	Provider   string
	Message    string
	Err        error
	RetryAfter time.Duration
	Time       time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeBlocked:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewBlocked creates a new block-detected error
func NewBlocked(provider, message string) *CrawlerError {
	return New(ErrorTypeBlocked, provider, message, nil)
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	e := New(ErrorTypeRateLimit, provider, message, nil)
	e.RetryAfter = duration
	return e
}

// NewIdentity creates a new identity pool error
func NewIdentity(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeIdentity, provider, message, err)
}

// NewCache creates a new cache error
func NewCache(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string) *CrawlerError {
	return New(ErrorTypeValidation, provider, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first CrawlerError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// IsType reports whether err carries a CrawlerError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// IsRetryable reports whether err is a retryable CrawlerError.
func IsRetryable(err error) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}
