// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string  // operator or identifier text, unquoted string body
	num  float64 // tokNumber payload
	pos  int     // byte offset, for messages
}

// multi-character operators, longest first.
var operators = []string{"**", "//", "==", "!=", "<=", ">=", "<", ">", "+", "-", "*", "/", "%", "&", "|", "~", "(", ")", "[", "]", ",", "."}

// tokenize splits src into tokens terminated by tokEOF.
//
// Complexity: O(len(src)).
func tokenize(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := scanNumber(src, i)
			f, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("number %q at %d: %w", src[i:j], i, ErrSyntax)
			}
			out = append(out, token{kind: tokNumber, num: f, text: src[i:j], pos: i})
			i = j
		case c == '_' || unicode.IsLetter(c):
			j := i + 1
			for j < len(src) && (src[j] == '_' || unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j]))) {
				j++
			}
			out = append(out, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		case c == '\'' || c == '"':
			j := strings.IndexByte(src[i+1:], src[i])
			if j < 0 {
				return nil, fmt.Errorf("unterminated string at %d: %w", i, ErrSyntax)
			}
			out = append(out, token{kind: tokString, text: src[i+1 : i+1+j], pos: i})
			i += j + 2
		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(src[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, fmt.Errorf("unexpected %q at %d: %w", c, i, ErrSyntax)
			}
			out = append(out, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}

	return append(out, token{kind: tokEOF, pos: len(src)}), nil
}

// scanNumber returns the end of the numeric literal starting at i (digits, fraction, exponent).
func scanNumber(src string, i int) int {
	j := i
	for j < len(src) && unicode.IsDigit(rune(src[j])) {
		j++
	}
	if j < len(src) && src[j] == '.' {
		j++
		for j < len(src) && unicode.IsDigit(rune(src[j])) {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && unicode.IsDigit(rune(src[k])) {
			for k < len(src) && unicode.IsDigit(rune(src[k])) {
				k++
			}
			j = k
		}
	}

	return j
}
