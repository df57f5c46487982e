// Package normalize cleans user supplied comment and caption text before it is stored.
// Pipeline order
// 1 Sanitize drop invalid UTF-8 and control characters, fold \r\n and \r to \n
// 2 Unicode NFC so visually equal text compares equal
// 3 Remove invisible format runes (zero-width space, BOM, bidi marks) but keep ZWJ for emoji
// 4 Collapse whitespace runs, preserving at most one line break per run, and trim
// 5 Truncate to a rune limit without splitting a grapheme's trailing combining marks
package normalize

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const zwj = '\u200d'

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.Predicate(func(r rune) bool {
				return r != zwj && unicode.Is(unicode.Cf, r)
			})),
		)
	},
}

// Text returns the stored form of s with at most maxRunes runes (0 means unlimited)
func Text(s string, maxRunes int) string {
	if s == "" {
		return ""
	}
	s = Sanitize(s)

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = s
	}

	ns = collapseSpaces(ns)
	if maxRunes > 0 {
		ns = truncate(ns, maxRunes)
	}
	return ns
}

// IsBlank reports whether s normalizes to nothing
func IsBlank(s string) bool { return Text(s, 0) == "" }

// collapseSpaces converts whitespace runs to a single ASCII space, but preserves line breaks.
// Runs that contain any newline are collapsed to a single newline. Edges are trimmed
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS, sawNL := false, false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			sawNL = sawNL || r == '\n'
			continue
		}
		if inWS && b.Len() > 0 {
			if sawNL {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		inWS, sawNL = false, false
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts s to max runes, then keeps any combining marks attached to the last base rune
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	i, n := 0, 0
	for i < len(s) && n < max {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n++
	}
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.Is(unicode.Mn, r) {
			break
		}
		i += size
	}
	return strings.TrimRightFunc(s[:i], unicode.IsSpace)
}
