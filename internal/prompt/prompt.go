// Package prompt builds the instruction text sent to the review model.
//
// This is deliberately a pure function — no network, no state, no error
// returns. The prompt pins down the exact JSON shape the model must return
// (the same shape model.AIReview unmarshals into), because free-form model
// output is useless to a program. Parsing and validation of whatever comes
// back live elsewhere; this package only formats.
package prompt

import (
	"fmt"
	"strings"
)

// reviewTemplate mandates the response contract. Field rules worth noting:
//   - explanation must cover every line of the input
//   - fixes must reference the same line numbers as the bugs they address
//   - finalCode must be a complete, directly usable replacement
//
// The template must never contain markdown fence markers itself — models
// love to echo formatting they see in the prompt.
const reviewTemplate = `You are an expert %s code reviewer.

Analyze the following code and return ONLY valid JSON.
DO NOT add markdown.
DO NOT add explanations outside JSON.
DO NOT wrap the response in markdown code fences.

JSON format MUST be exactly:

{
  "title": string,
  "bugs": [
    {
      "line": number,
      "severity": "low" | "medium" | "high",
      "description": string
    }
  ],
  "fixes": [
    {
      "line": number,
      "suggestion": string
    }
  ],
  "explanation": [
    {
      "line": number,
      "text": string
    }
  ],
  "complexity": {
    "time": string,
    "space": string,
    "explanation": string
  },
  "finalCode": string
}

Rules:
- title MUST be a short descriptive summary of the code issue (max 4 words)
- explanation MUST be line-by-line (one entry per line of code)
- complexity MUST ONLY describe time and space complexity
- bugs MUST include exact line numbers
- fixes MUST directly correspond to bugs (same line numbers)
- finalCode MUST contain the FULL corrected code so it can be copied directly
- return ONLY valid JSON

Code to analyze:
%s
`

// Build formats the review instruction for the given source code and
// declared language. It always returns a usable string: empty code is
// described as such rather than producing an empty prompt (refusing to
// submit empty input is the caller's job, not ours).
func Build(code, language string) string {
	if strings.TrimSpace(language) == "" {
		language = "source"
	}
	if strings.TrimSpace(code) == "" {
		code = "(the user submitted empty input — report that there is no code to analyze)"
	}
	return fmt.Sprintf(reviewTemplate, language, code)
}
