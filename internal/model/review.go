package model

import (
	"fmt"

	"github.com/sakif/code-reviewer/internal/apperror"
)

// Severity classifies how serious a reported bug is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the three allowed severity values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Bug is one issue the model found, anchored to a line of the input code.
type Bug struct {
	Line        int      `json:"line"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Fix is a suggested correction. By contract it references the same line
// number as the bug it corresponds to.
type Fix struct {
	Line       int    `json:"line"`
	Suggestion string `json:"suggestion"`
}

// ExplanationLine is one entry of the line-by-line walkthrough — by
// convention one entry per line of the input code.
type ExplanationLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Complexity summarises the time/space complexity of the input code.
type Complexity struct {
	Time        string `json:"time"`
	Space       string `json:"space"`
	Explanation string `json:"explanation"`
}

// AIReview is the fixed-shape report the model is instructed to return.
// It is parsed straight from the model's JSON output, validated, shown to
// the client, and persisted verbatim inside a HistoryRecord.
//
// Title is asked to be at most ~4 words, but that's a convention we don't
// enforce — models mostly comply and nothing breaks when they don't.
type AIReview struct {
	Title       string            `json:"title"`
	Bugs        []Bug             `json:"bugs"`
	Fixes       []Fix             `json:"fixes"`
	Explanation []ExplanationLine `json:"explanation"`
	Complexity  Complexity        `json:"complexity"`
	FinalCode   string            `json:"finalCode"`
}

// Validate checks that a parsed review actually matches the contract the
// prompt mandates. LLM output is untrusted input: a response can be valid
// JSON and still be missing fields or carry the wrong types, so we never
// trust the parsed object's shape implicitly.
//
// Rules:
//   - title, finalCode, and complexity.time/space are required
//   - every bug needs a positive line number and a valid severity
//   - every fix and explanation entry needs a positive line number
//
// Bugs/fixes/explanation may be empty — clean code has nothing to report.
func (r *AIReview) Validate() error {
	if r.Title == "" {
		return apperror.ValidationFailed("title", "review title is required")
	}
	if r.FinalCode == "" {
		return apperror.ValidationFailed("finalCode", "review finalCode is required")
	}
	if r.Complexity.Time == "" || r.Complexity.Space == "" {
		return apperror.ValidationFailed("complexity", "review complexity must include time and space")
	}

	for i, b := range r.Bugs {
		if b.Line < 1 {
			return apperror.ValidationFailed("bugs",
				fmt.Sprintf("bugs[%d]: line number must be positive, got %d", i, b.Line))
		}
		if !b.Severity.Valid() {
			return apperror.ValidationFailed("bugs",
				fmt.Sprintf("bugs[%d]: severity must be low, medium, or high, got %q", i, b.Severity))
		}
	}
	for i, f := range r.Fixes {
		if f.Line < 1 {
			return apperror.ValidationFailed("fixes",
				fmt.Sprintf("fixes[%d]: line number must be positive, got %d", i, f.Line))
		}
	}
	for i, e := range r.Explanation {
		if e.Line < 1 {
			return apperror.ValidationFailed("explanation",
				fmt.Sprintf("explanation[%d]: line number must be positive, got %d", i, e.Line))
		}
	}

	return nil
}
