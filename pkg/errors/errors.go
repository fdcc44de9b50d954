package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents network/status errors from an HTTP fetch
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeExtraction represents a card or page whose structure did not match expectations
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeNavigation represents a browser affordance that never became interactable
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeStore represents persistence errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError carries enough context (source, branch/postcode, size, URL)
// for a failed pair to be replayed manually.
type ScrapeError struct {
	Type     ErrorType
	Source   string
	URL      string
	Branch   int // ordinal branch index, -1 when not applicable
	Postcode string
	Size     string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Type, e.Source, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " - %v", e.Err)
	}
	var ctx []string
	if e.URL != "" {
		ctx = append(ctx, "url="+e.URL)
	}
	if e.Branch >= 0 {
		ctx = append(ctx, fmt.Sprintf("branch=%d", e.Branch))
	}
	if e.Postcode != "" {
		ctx = append(ctx, "postcode="+e.Postcode)
	}
	if e.Size != "" {
		ctx = append(ctx, "size="+e.Size)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// WithBranch attaches the ordinal branch index to the error
func (e *ScrapeError) WithBranch(branch int) *ScrapeError {
	e.Branch = branch
	return e
}

// WithPostcode attaches the branch postcode to the error
func (e *ScrapeError) WithPostcode(postcode string) *ScrapeError {
	e.Postcode = postcode
	return e
}

// WithSize attaches the tyre size query to the error
func (e *ScrapeError) WithSize(size string) *ScrapeError {
	e.Size = size
	return e
}

// New creates a new ScrapeError
func New(errType ErrorType, source, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Branch:  -1,
	}
}

// NewFetch creates a new fetch error for a URL
func NewFetch(source, url, message string, err error) *ScrapeError {
	e := New(ErrorTypeFetch, source, message, err)
	e.URL = url
	return e
}

// NewExtraction creates a new extraction error
func NewExtraction(source, message string, err error) *ScrapeError {
	return New(ErrorTypeExtraction, source, message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(source, message string, err error) *ScrapeError {
	return New(ErrorTypeNavigation, source, message, err)
}

// NewStore creates a new store error
func NewStore(message string, err error) *ScrapeError {
	return New(ErrorTypeStore, "", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a ScrapeError of the given type
func IsType(err error, errType ErrorType) bool {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// TypeLabel returns the error type as a metrics label, "other" for foreign errors
func TypeLabel(err error) string {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return string(se.Type)
	}
	return "other"
}
