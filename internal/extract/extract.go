// Package extract pulls the tagged answer and confidence out of a model's
// free-text response.
//
// Models are asked to wrap their final answer in <answer></answer> and their
// self-reported confidence in <confidence></confidence>. In practice the
// answer body is messy: equations, decimals, currency symbols and unit words
// all show up. Extract normalizes the answer into an integer where possible
// and leaves anything else as text.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/timvw/honesty-bench/internal/model"
)

const (
	answerOpen      = "<answer>"
	answerClose     = "</answer>"
	confidenceOpen  = "<confidence>"
	confidenceClose = "</confidence>"

	// notApplicable is the sentinel a model uses when it declines to answer.
	notApplicable = "N/A"
)

// ErrMalformedConfidence is wrapped by *Error when a <confidence> body is not
// an integer.
var ErrMalformedConfidence = errors.New("confidence is not an integer")

// Error reports a tagged field whose body could not be parsed.
type Error struct {
	Field string // tag name, e.g. "confidence"
	Body  string // raw text between the tags
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s %q: %v", e.Field, e.Body, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result holds the extracted fields of a single response.
type Result struct {
	// Answer is absent when the answer tags are missing.
	Answer model.Value
	// Confidence is nil when the confidence tags are missing.
	Confidence *int
}

var (
	symbols = strings.NewReplacer("$", "", "€", "", ",", "", "}", "")
	letters = regexp.MustCompile(`[a-zA-Z]+`)
)

// isWord reports whether r is a word character: any letter or number, or the
// underscore.
func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// dropWords removes runs of ASCII letters that stand alone. A run touching
// another word character on either side, such as the "m" in "µm" or the "caf"
// in "café", is part of a longer word and is kept.
func dropWords(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range letters.FindAllStringIndex(s, -1) {
		if r, _ := utf8.DecodeLastRuneInString(s[:loc[0]]); loc[0] > 0 && isWord(r) {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(s[loc[1]:]); loc[1] < len(s) && isWord(r) {
			continue
		}
		b.WriteString(s[last:loc[0]])
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// Extract returns the answer and confidence found in response.
//
// A confidence body that is not an integer returns an *Error wrapping
// ErrMalformedConfidence; the answer is still populated in that case so the
// caller can log what was lost.
func Extract(response string) (Result, error) {
	var res Result
	if body, ok := tagged(response, answerOpen, answerClose); ok {
		res.Answer = CleanAnswer(body)
	}

	body, ok := tagged(response, confidenceOpen, confidenceClose)
	if !ok {
		return res, nil
	}
	n, ok := model.ParseInt(body)
	if !ok || int64(int(n)) != n {
		return res, &Error{Field: "confidence", Body: body, Err: ErrMalformedConfidence}
	}
	c := int(n)
	res.Confidence = &c
	return res, nil
}

// CleanAnswer normalizes the body of an <answer> tag:
//
//  1. keep what follows the last "=" and trim whitespace
//  2. keep what precedes the first "."
//  3. drop "$", "€", "," and "}"
//  4. unless the text is exactly "N/A", drop standalone ASCII words and trim
//  5. parse as an integer (model.ParseInt), or keep as text
func CleanAnswer(body string) model.Value {
	s := body
	if i := strings.LastIndex(s, "="); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	s = symbols.Replace(s)
	if s != notApplicable {
		s = strings.TrimSpace(dropWords(s))
	}
	return model.Coerce(s)
}

// tagged returns the text between the first open tag and the first close tag
// after it. Both tags must occur somewhere in s; when the close tag only
// appears before the open tag, everything after the open tag is returned.
func tagged(s, open, close string) (string, bool) {
	if !strings.Contains(s, open) || !strings.Contains(s, close) {
		return "", false
	}
	rest := s[strings.Index(s, open)+len(open):]
	if j := strings.Index(rest, close); j >= 0 {
		rest = rest[:j]
	}
	return rest, true
}
