// Package validation provides input validation and sanitization for network messages.
package validation

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

// Message size and content limits
const (
	MaxMessageSize    = 64 * 1024 // 64KB max message
	MaxPilotNameLen   = 32
	MaxCommandLen     = 64
	MaxMessagesPerMin = 600
	MaxTimeMultiplier = 100.0
)

var (
	// Alphanumeric, spaces, hyphens, underscores and basic punctuation.
	validPilotNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.<>()]+$`)

	// Commands are a verb followed by plain words, signed integers or
	// single part keys.
	validCommandChars = regexp.MustCompile(`^[a-zA-Z0-9 +\-_=.]+$`)
)

// MessageValidator checks raw messages and rate limits each client.
type MessageValidator struct {
	rateLimiter *RateLimiter
}

// NewMessageValidator creates a validator allowing MaxMessagesPerMin
// messages per client per minute.
func NewMessageValidator() *MessageValidator {
	return NewMessageValidatorWithLimit(MaxMessagesPerMin, time.Minute)
}

// NewMessageValidatorWithLimit creates a validator with a custom rate.
func NewMessageValidatorWithLimit(maxRequests int, window time.Duration) *MessageValidator {
	return &MessageValidator{
		rateLimiter: NewRateLimiter(maxRequests, window),
	}
}

// Close releases resources used by the message validator
func (v *MessageValidator) Close() {
	if v.rateLimiter != nil {
		v.rateLimiter.Close()
	}
}

// Forget drops the rate limiting state of a disconnected client.
func (v *MessageValidator) Forget(clientID string) {
	v.rateLimiter.Forget(clientID)
}

// ValidateMessage validates a raw message against size and format constraints
func (v *MessageValidator) ValidateMessage(data []byte, clientID string) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}

	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON format")
	}

	if !v.rateLimiter.Allow(clientID) {
		return fmt.Errorf("rate limit exceeded: max %d messages per %s", v.rateLimiter.maxRequests, v.rateLimiter.window)
	}

	return nil
}

// ValidatePilotName validates and sanitizes a pilot name
func ValidatePilotName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("pilot name cannot be empty")
	}

	if len(name) > MaxPilotNameLen {
		return "", fmt.Errorf("pilot name too long: %d characters (max %d)", len(name), MaxPilotNameLen)
	}

	if !utf8.ValidString(name) {
		return "", fmt.Errorf("pilot name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("pilot name cannot be only whitespace")
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("pilot name contains control characters")
		}
	}

	if !validPilotNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("pilot name contains invalid characters (only alphanumeric, spaces, hyphens, underscores, and basic punctuation allowed)")
	}

	return html.EscapeString(trimmed), nil
}

// ValidateCommand checks a session command and returns it with runs of
// whitespace collapsed. The first word must be one of verbs.
func ValidateCommand(cmd string, verbs []string) (string, error) {
	if len(cmd) > MaxCommandLen {
		return "", fmt.Errorf("command too long: %d characters (max %d)", len(cmd), MaxCommandLen)
	}
	if !utf8.ValidString(cmd) {
		return "", fmt.Errorf("command contains invalid UTF-8 characters")
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return "", fmt.Errorf("command cannot be empty")
	}
	normalized := strings.Join(fields, " ")
	if !validCommandChars.MatchString(normalized) {
		return "", fmt.Errorf("command contains invalid characters")
	}
	if !slices.Contains(verbs, fields[0]) {
		return "", fmt.Errorf("unknown command verb %q", fields[0])
	}
	return normalized, nil
}

// ValidateDesign parses a design string and checks that every part exists
// and, when unlocked is not nil, that the pilot may use it.
func ValidateDesign(s string, catalog *part.Catalog, unlocked func(part.Key) bool) (vab.Design, error) {
	d, err := vab.ParseDesign(s)
	if err != nil {
		return vab.Design{}, err
	}
	if err := d.Validate(catalog); err != nil {
		return vab.Design{}, err
	}
	if unlocked != nil {
		for row, k := range d {
			if k != part.None && !unlocked(k) {
				return vab.Design{}, fmt.Errorf("row %d: part %q is locked", row, k)
			}
		}
	}
	return d, nil
}

// ValidateTimeMultiplier bounds the auto-advance speed a client may ask for.
func ValidateTimeMultiplier(m float64) error {
	if m <= 0 || m > MaxTimeMultiplier {
		return fmt.Errorf("invalid time multiplier: %v (must be in (0, %v])", m, MaxTimeMultiplier)
	}
	return nil
}
