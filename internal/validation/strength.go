// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package validation

import (
	"unicode"
	"unicode/utf8"
)

// Strength levels reported by PasswordStrength.
const (
	LevelWeak   = "weak"
	LevelFair   = "fair"
	LevelGood   = "good"
	LevelStrong = "strong"
)

// Strength is a password strength estimate. Score ranges from 0 to 4.
type Strength struct {
	Score       int      `json:"score"`
	Level       string   `json:"level"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// PasswordStrength scores pw with one point each for: at least eight
// characters, mixed case, a digit, and a symbol.
func PasswordStrength(pw string) Strength {
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var s Strength
	if utf8.RuneCountInString(pw) >= 8 {
		s.Score++
	} else {
		s.Suggestions = append(s.Suggestions, "Use at least 8 characters")
	}
	if upper && lower {
		s.Score++
	} else {
		s.Suggestions = append(s.Suggestions, "Mix upper and lower case letters")
	}
	if digit {
		s.Score++
	} else {
		s.Suggestions = append(s.Suggestions, "Add a number")
	}
	if symbol {
		s.Score++
	} else {
		s.Suggestions = append(s.Suggestions, "Add a symbol")
	}

	switch s.Score {
	case 0, 1:
		s.Level = LevelWeak
	case 2:
		s.Level = LevelFair
	case 3:
		s.Level = LevelGood
	default:
		s.Level = LevelStrong
	}
	return s
}

// PasswordsMatch reports whether confirm equals pw, with the message shown
// beside the confirmation field. An empty confirmation yields no message.
func PasswordsMatch(pw, confirm string) (bool, string) {
	if confirm == "" {
		return false, ""
	}
	if pw != confirm {
		return false, MsgPasswordsDiffer
	}
	return true, "Passwords match"
}
