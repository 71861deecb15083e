package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
)

const (
	MatchSubstring = "substring"
	MatchWord      = "word"
)

// Candidate is a user that can be mentioned by name.
type Candidate struct {
	ID   snowflake.ID
	Name string
}

// DetectMentions returns the candidates whose "@<name>" appears in content,
// in candidate order. Matching ignores case. In substring mode "@Jon" also
// matches inside "@Jonathan"; word mode requires the name to end at a
// non-name character or the end of the text.
func DetectMentions(content string, candidates []Candidate, mode string) []snowflake.ID {
	if !strings.Contains(content, "@") {
		return nil
	}
	text := strings.ToLower(content)

	var out []snowflake.ID
	for _, c := range candidates {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			continue
		}
		if matchName(text, "@"+name, mode == MatchWord) {
			out = append(out, c.ID)
		}
	}
	return out
}

func matchName(text, needle string, word bool) bool {
	offset := 0
	for {
		idx := strings.Index(text[offset:], needle)
		if idx < 0 {
			return false
		}
		end := offset + idx + len(needle)
		if !word || end == len(text) {
			return true
		}
		next, _ := utf8.DecodeRuneInString(text[end:])
		if !isNameRune(next) {
			return true
		}
		offset += idx + 1
	}
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '\''
}

// MergeMentions unions explicit and detected ids in first-seen order. Every
// explicit id must be in allowed and is kept even when it is the sender;
// detection never mentions the sender.
func MergeMentions(explicit, detected []snowflake.ID, allowed map[snowflake.ID]struct{}, sender snowflake.ID) ([]snowflake.ID, error) {
	seen := make(map[snowflake.ID]struct{}, len(explicit)+len(detected))
	out := make([]snowflake.ID, 0, len(explicit)+len(detected))
	for _, id := range explicit {
		if _, ok := allowed[id]; !ok {
			return nil, ErrInvalidMention
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range detected {
		if id == sender {
			continue
		}
		if _, ok := allowed[id]; !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
