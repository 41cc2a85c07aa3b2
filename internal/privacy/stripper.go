// Package privacy removes personal details from user text before it is
// sent to a third-party generation service.
package privacy

import (
	"regexp"
	"strings"
)

// Placeholders substituted for redacted values.
const (
	EmailPlaceholder = "[email]"
	PhonePlaceholder = "[phone]"
)

var (
	// privateTagRegex matches <private>...</private> tags
	privateTagRegex = regexp.MustCompile(`(?s)<private>.*?</private>`)

	emailRegex = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// phoneRegex matches runs of 10+ digits with optional separators and
	// country code, e.g. "+91 98765 43210" or "(555) 123-4567".
	phoneRegex = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{8,}\d`)
)

// StripPrivateTags removes all <private>...</private> content from text.
func StripPrivateTags(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// RedactEmails replaces email addresses with EmailPlaceholder.
func RedactEmails(text string) string {
	return emailRegex.ReplaceAllString(text, EmailPlaceholder)
}

// RedactPhones replaces phone numbers with PhonePlaceholder. Short digit
// runs such as years or durations are left alone.
func RedactPhones(text string) string {
	return phoneRegex.ReplaceAllStringFunc(text, func(match string) string {
		digits := 0
		for _, r := range match {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 10 {
			return match
		}
		return PhonePlaceholder
	})
}

// IsEntirelyPrivate checks if the text is entirely within <private> tags.
func IsEntirelyPrivate(text string) bool {
	stripped := StripPrivateTags(text)
	return strings.TrimSpace(stripped) == ""
}

// Clean performs full privacy cleaning on text.
// This is the main function to use before text leaves the process.
func Clean(text string) string {
	text = StripPrivateTags(text)
	text = RedactEmails(text)
	text = RedactPhones(text)
	return strings.TrimSpace(text)
}
