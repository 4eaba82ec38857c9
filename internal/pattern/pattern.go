// ABOUTME: Text matchers used by hear registrations and conversation pattern handlers
// ABOUTME: Exact case-insensitive strings, regular expressions, and ordered lists of both

package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// InvalidMatcherError reports a matcher value of an unsupported shape.
type InvalidMatcherError struct {
	Value  any
	Reason string
}

func (e *InvalidMatcherError) Error() string {
	return fmt.Sprintf("invalid matcher %T: %s", e.Value, e.Reason)
}

// Result describes a successful match.
type Result struct {
	Keyword string   // set when an exact string matched
	Match   []string // set when a regular expression matched
}

type part struct {
	keyword string
	re      *regexp.Regexp
}

// Matcher tests message text against an ordered list of strings and
// regular expressions. The first part that matches wins.
type Matcher struct {
	parts []part
}

// Compile builds a Matcher from a string, a *regexp.Regexp, a *Matcher, or
// a slice mixing strings and regular expressions.
func Compile(v any) (*Matcher, error) {
	m := &Matcher{}
	if err := m.add(v, true); err != nil {
		return nil, err
	}
	if len(m.parts) == 0 {
		return nil, &InvalidMatcherError{Value: v, Reason: "empty matcher list"}
	}
	return m, nil
}

// MustCompile is like Compile but panics on an invalid matcher.
func MustCompile(v any) *Matcher {
	m, err := Compile(v)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matcher) add(v any, top bool) error {
	switch x := v.(type) {
	case string:
		if x == "" {
			return &InvalidMatcherError{Value: v, Reason: "empty string"}
		}
		m.parts = append(m.parts, part{keyword: x})
	case *regexp.Regexp:
		if x == nil {
			return &InvalidMatcherError{Value: v, Reason: "nil regexp"}
		}
		m.parts = append(m.parts, part{re: x})
	case *Matcher:
		if x == nil {
			return &InvalidMatcherError{Value: v, Reason: "nil matcher"}
		}
		m.parts = append(m.parts, x.parts...)
	case []string:
		if !top {
			return &InvalidMatcherError{Value: v, Reason: "nested list"}
		}
		for _, s := range x {
			if err := m.add(s, false); err != nil {
				return err
			}
		}
	case []*regexp.Regexp:
		if !top {
			return &InvalidMatcherError{Value: v, Reason: "nested list"}
		}
		for _, re := range x {
			if err := m.add(re, false); err != nil {
				return err
			}
		}
	case []any:
		if !top {
			return &InvalidMatcherError{Value: v, Reason: "nested list"}
		}
		for _, item := range x {
			if err := m.add(item, false); err != nil {
				return err
			}
		}
	default:
		return &InvalidMatcherError{Value: v, Reason: "want string, *regexp.Regexp or a list of them"}
	}
	return nil
}

// Match tests text against each part in order.
func (m *Matcher) Match(text string) (Result, bool) {
	if text == "" {
		return Result{}, false
	}
	for _, p := range m.parts {
		if p.re != nil {
			if sub := p.re.FindStringSubmatch(text); sub != nil {
				return Result{Match: sub}, true
			}
			continue
		}
		if strings.EqualFold(p.keyword, text) {
			return Result{Keyword: p.keyword}, true
		}
	}
	return Result{}, false
}

func (m *Matcher) String() string {
	names := make([]string, len(m.parts))
	for i, p := range m.parts {
		if p.re != nil {
			names[i] = "/" + p.re.String() + "/"
		} else {
			names[i] = fmt.Sprintf("%q", p.keyword)
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
