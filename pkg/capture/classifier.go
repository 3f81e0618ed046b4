// Package capture decides whether conversational text should become a
// durable memory.
//
// Classification is two pass: exclusion rules run first and any match
// rejects; trigger rules run only on text that survived exclusion, and any
// single match accepts. Both rule sets are data-driven pattern tables (see
// patterns.go) grouped by concern and covering at least English and Chinese.
// Category detection is independent of the accept/reject decision.
package capture

import (
	"strings"
	"unicode/utf8"
)

// Category classifies a captured memory. The set is closed and evaluated by
// priority: preference, then project, then personal, then other.
type Category string

const (
	CategoryPreference Category = "preference"
	CategoryProject    Category = "project"
	CategoryPersonal   Category = "personal"
	CategoryOther      Category = "other"
)

const (
	// MinLength and MaxLength bound capture-worthy text. Shorter text lacks
	// context to be a useful memory; longer text is prose, not a fact.
	MinLength = 15
	MaxLength = 500

	// MemoryMarker tags text the engine itself injected from recalled
	// memories. Re-capturing it would loop memories back into the store.
	MemoryMarker = "Recalled memories:"

	maxEmoji = 3
)

// ShouldCapture reports whether text is worth keeping as a durable memory.
func ShouldCapture(text string) bool {
	trimmed := strings.TrimSpace(text)

	for _, group := range ExclusionGroups {
		for _, re := range group.Patterns {
			if re.MatchString(trimmed) {
				return false
			}
		}
	}
	if strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？") {
		return false
	}
	if n := utf8.RuneCountInString(trimmed); n < MinLength || n > MaxLength {
		return false
	}
	if strings.Contains(trimmed, MemoryMarker) {
		return false
	}
	if countEmoji(trimmed) > maxEmoji {
		return false
	}

	for _, group := range TriggerGroups {
		for _, re := range group.Patterns {
			if re.MatchString(trimmed) {
				return true
			}
		}
	}
	return false
}

// DetectCategory classifies text by the highest-priority trigger family it
// matches. It never consults ShouldCapture: callers may categorize text that
// the capture decision rejected.
func DetectCategory(text string) Category {
	trimmed := strings.TrimSpace(text)

	matched := make(map[string]bool, len(TriggerGroups))
	for _, group := range TriggerGroups {
		for _, re := range group.Patterns {
			if re.MatchString(trimmed) {
				matched[group.Name] = true
				break
			}
		}
	}

	for _, entry := range categoryOrder {
		for _, family := range entry.Families {
			if matched[family] {
				return entry.Category
			}
		}
	}
	return CategoryOther
}

// countEmoji counts runes in the common emoji blocks.
func countEmoji(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF:
			n++
		case r >= 0x2600 && r <= 0x27BF:
			n++
		case r >= 0x1F000 && r <= 0x1F2FF:
			n++
		}
	}
	return n
}
