package graph

import (
	"regexp"
	"strings"
)

// wikilinkRe matches [[Target]] and [[Target|Alias]]. Only the target is
// captured; aliases are display-only and never stored.
var (
	wikilinkRe   = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|[^\[\]]*)?\]\]`)
	inlineCodeRe = regexp.MustCompile("`[^`\n]*`")
)

// ExtractLinks returns deduplicated wikilink targets from text, in order of
// first appearance. Fenced code blocks and inline code spans are stripped
// first so link-like text inside examples is never treated as a real link,
// and a backslash immediately before the opener suppresses that match.
func ExtractLinks(text string) []string {
	seen := make(map[string]struct{})
	var out []string

	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		scannable := inlineCodeRe.ReplaceAllString(line, "")

		for _, m := range wikilinkRe.FindAllStringSubmatchIndex(scannable, -1) {
			// An escape marker immediately preceding the opener suppresses
			// the link.
			if m[0] > 0 && scannable[m[0]-1] == '\\' {
				continue
			}
			target := strings.TrimSpace(scannable[m[2]:m[3]])
			if target == "" {
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			out = append(out, target)
		}
	}

	return out
}
