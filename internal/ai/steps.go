// steps.go - Splits a tutor's solution into display steps

package ai

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	maxPreambleSteps = 6
	maxSentenceSteps = 6
	maxSteps         = 8
	minStepLength    = 10 // steps must be longer than this (in characters)
)

// DefaultStep is returned when no usable step could be extracted
const DefaultStep = "Solution provided above with detailed explanation"

var stepPrefixes = []string{
	"Step", "step",
	"1.", "2.", "3.", "4.", "5.", "6.", "7.", "8.", "9.", "10.",
	"•", "-", "*",
}

// ExtractSteps splits a solution into steps. A line opens a new step when it
// starts with a step marker (Step, a number, a bullet) or mentions "step"
// near its start; following lines are appended to the open step.
func ExtractSteps(solution string) []string {
	var steps []string
	current := ""

	for _, raw := range strings.Split(solution, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case isStepStart(line):
			if current != "" {
				steps = append(steps, strings.TrimSpace(current))
			}
			current = line
		case current != "":
			current += " " + line
		case len(steps) < maxPreambleSteps:
			// Lines before the first marker still carry meaning
			steps = append(steps, line)
		}
	}
	if current != "" {
		steps = append(steps, strings.TrimSpace(current))
	}

	// No structure at all: fall back to sentences
	if len(steps) == 0 {
		for _, s := range strings.Split(solution, ".") {
			if s = strings.TrimSpace(s); s != "" {
				steps = append(steps, s)
			}
			if len(steps) == maxSentenceSteps {
				break
			}
		}
	}

	cleaned := []string{}
	for i, step := range steps {
		if i >= maxSteps {
			break
		}
		if utf8.RuneCountInString(step) > minStepLength && !slices.Contains(cleaned, step) {
			cleaned = append(cleaned, step)
		}
	}

	if len(cleaned) == 0 {
		return []string{DefaultStep}
	}
	return cleaned
}

func isStepStart(line string) bool {
	for _, p := range stepPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}

	head := []rune(strings.ToLower(line))
	if len(head) > 10 {
		head = head[:10]
	}
	return strings.Contains(string(head), "step")
}
