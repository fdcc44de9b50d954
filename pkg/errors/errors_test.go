package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrapeErrorFormatting(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewFetch("National", "https://example.test/branches", "request failed", cause).
		WithPostcode("LS14DF").
		WithSize("205/55 R16")

	msg := err.Error()
	assert.Contains(t, msg, "[fetch] National: request failed")
	assert.Contains(t, msg, "connection refused")
	assert.Contains(t, msg, "url=https://example.test/branches")
	assert.Contains(t, msg, "postcode=LS14DF")
	assert.Contains(t, msg, "size=205/55 R16")
}

func TestScrapeErrorUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewExtraction("Dexel", "bad card", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsTypeAndLabel(t *testing.T) {
	fetchErr := NewFetch("Dexel", "http://x", "failed", nil)
	assert.True(t, IsType(fetchErr, ErrorTypeFetch))
	assert.False(t, IsType(fetchErr, ErrorTypeExtraction))
	assert.Equal(t, "fetch", TypeLabel(fetchErr))

	wrapped := fmt.Errorf("run aborted: %w", NewNavigation("Dexel", "timed out", nil))
	assert.True(t, IsType(wrapped, ErrorTypeNavigation))
	assert.Equal(t, "navigation", TypeLabel(wrapped))

	assert.Equal(t, "other", TypeLabel(stderrors.New("plain")))
	assert.False(t, IsType(nil, ErrorTypeFetch))
}
