// Package errors provides the structured error type used throughout icecore.
package errors

import (
	"fmt"
	"regexp"
)

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// Code identifies an error's package and kind, e.g. "manifest.decode_failed".
type Code struct {
	value string
}

// NewCode validates s as "package.name" and rejects the literal words
// "error"/"err" to keep codes descriptive rather than redundant.
func NewCode(s string) (Code, error) {
	if !codePattern.MatchString(s) {
		return Code{}, fmt.Errorf("errors: invalid code %q: must match package.name", s)
	}
	if containsWord(s, "error") || containsWord(s, "err") {
		return Code{}, fmt.Errorf("errors: invalid code %q: must not contain \"error\"/\"err\"", s)
	}
	return Code{value: s}, nil
}

// MustNewCode is NewCode but panics on an invalid code; used for package-level
// var blocks where the code is a compile-time constant.
func MustNewCode(s string) Code {
	c, err := NewCode(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Code) String() string { return c.value }

func (c Code) Package() string {
	for i, r := range c.value {
		if r == '.' {
			return c.value[:i]
		}
	}
	return c.value
}

func (c Code) Name() string {
	for i, r := range c.value {
		if r == '.' {
			return c.value[i+1:]
		}
	}
	return ""
}

func (c Code) IsValid() bool { return c.value != "" }

func (c Code) Equals(other Code) bool { return c.value == other.value }

func containsWord(s, word string) bool {
	for i := 0; i+len(word) <= len(s); i++ {
		if s[i:i+len(word)] == word {
			before := i == 0 || !isAlnum(s[i-1])
			after := i+len(word) == len(s) || !isAlnum(s[i+len(word)])
			if before && after {
				return true
			}
		}
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
