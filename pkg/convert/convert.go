// Package convert rewrites chat messages into an animal's speech style with
// ordered regular-expression rules. It never calls a model.
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// ErrUnsupportedAnimal is returned for an animal without a rule set.
var ErrUnsupportedAnimal = errors.New("convert: unsupported animal")

const matchTimeout = time.Second

// rule is one substitution. Replacements use $1-style group references.
type rule struct {
	re   *regexp2.Regexp
	repl string
}

func mustRule(pattern, repl string) rule {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = matchTimeout
	return rule{re: re, repl: repl}
}

func (r rule) apply(s string) (string, error) {
	return r.re.Replace(s, r.repl, -1, -1)
}

// dialect is the full rule set for one animal.
type dialect struct {
	rules   []rule // word and phrase rules, in order
	endings []rule // sentence-end suffix rules, applied only to Korean text
	cleanup []rule // strips suffixes that double up with earlier rewrites

	// englishSound is appended to English-only messages, before any final
	// sentence mark. Empty means English text passes through the rules.
	englishSound string
}

var (
	quoteRe   = compile(`'[^']*'`)
	hangulRe  = compile(`[가-힣]`)
	englishRe = compile(`^[a-zA-Z\s\d.,!?;:'"-]+$`)
)

func compile(pattern string) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = matchTimeout
	return re
}

// Convert rewrites text in the given animal's style. Single-quoted spans are
// left untouched. Empty input is returned as is.
func Convert(animal, text string) (string, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(animal))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAnimal, animal)
	}
	if text == "" {
		return text, nil
	}
	out, err := d.convert(text)
	if err != nil {
		return "", fmt.Errorf("convert: %s: %w", animal, err)
	}
	return out, nil
}

// Supported reports whether animal has a rule set.
func Supported(animal string) bool {
	_, ok := dialects[strings.ToLower(strings.TrimSpace(animal))]
	return ok
}

func (d dialect) convert(text string) (string, error) {
	if d.englishSound != "" {
		trimmed := strings.TrimSpace(text)
		english, err := englishRe.MatchString(trimmed)
		if err != nil {
			return "", err
		}
		if english {
			return appendSound(trimmed, d.englishSound), nil
		}
	}

	// Placeholders are NUL-delimited so no rule can match into them.
	var saved []string
	s, err := quoteRe.ReplaceFunc(text, func(m regexp2.Match) string {
		saved = append(saved, m.String())
		return fmt.Sprintf("\x00Q%d\x00", len(saved)-1)
	}, -1, -1)
	if err != nil {
		return "", err
	}
	s = strings.ReplaceAll(s, "아아", "\x00A\x00")

	if s, err = applyAll(s, d.rules); err != nil {
		return "", err
	}

	korean, err := hangulRe.MatchString(s)
	if err != nil {
		return "", err
	}
	if korean {
		if s, err = applyAll(s, d.endings); err != nil {
			return "", err
		}
	}

	if s, err = applyAll(s, d.cleanup); err != nil {
		return "", err
	}

	s = strings.ReplaceAll(s, "\x00A\x00", "아아")
	for i, q := range saved {
		s = strings.Replace(s, fmt.Sprintf("\x00Q%d\x00", i), q, 1)
	}
	return s, nil
}

// appendSound adds " "+sound at the end of s, keeping a final . ! or ? last.
func appendSound(s, sound string) string {
	if n := len(s); n > 0 && strings.ContainsRune(".!?", rune(s[n-1])) {
		return s[:n-1] + " " + sound + s[n-1:]
	}
	return s + " " + sound
}

func applyAll(s string, rules []rule) (string, error) {
	var err error
	for _, r := range rules {
		if s, err = r.apply(s); err != nil {
			return "", err
		}
	}
	return s, nil
}

// endWord matches a rule target only when it closes a word.
const endWord = `(?=[!?\s.,]|$)`

// intensifiers rewrites the first syllable of emphasis adverbs that follow a space.
func intensifiers(mark string) []rule {
	words := []string{"완전", "진짜", "정말", "엄청", "되게", "너무", "매우", "많이", "조금", "좀"}
	out := make([]rule, 0, len(words))
	for _, w := range words {
		rest := string([]rune(w)[1:])
		out = append(out, mustRule(`(\s)`+w+`(?=[\s가-힣])`, "$1"+mark+rest))
	}
	return out
}

// endingRules appends suffix to the last Korean syllable before punctuation,
// standalone jamo, emoticons, line breaks and the end of text. Syllables in
// skip already carry the animal's sound.
func endingRules(suffix, skip string) []rule {
	tail := `([가-힣])(?<![` + skip + `])`
	return []rule{
		mustRule(tail+`(\s*[.!?~\\,;]+)`, "$1"+suffix+"$2"),
		mustRule(tail+`(\s*\^\^\s*$)`, "$1"+suffix+"$2"),
		mustRule(tail+`(\s*:\)\s*$)`, "$1"+suffix+"$2"),
		mustRule(tail+`(\s*[ㄱ-ㅎㅏ-ㅣ]+)`, "$1"+suffix+"$2"),
		mustRule(tail+`(\s*\r?\n)`, "$1"+suffix+"$2"),
		mustRule(tail+`(\s*$)`, "$1"+suffix+"$2"),
	}
}
