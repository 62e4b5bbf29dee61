package cmd

import (
	"math/rand"
	"regexp"

	"github.com/dotcommander/airport/internal/present"
)

var examples = map[string]string{
	"Look up several airports at once":    `airport LHR "San Francisco" EGLL`,
	"Get a briefing before a trip":        `airport brief "Tokyo Haneda"`,
	"Feed a list of codes, keep the JSON": `cat codes.txt | airport lookup --json | jq '.[].timezone'`,
	"Search by city instead of by code":   `airport --strategy search "Lisbon"`,
}

var (
	quotedRe = regexp.MustCompile(`"([^"\\]|\\.)*"|'([^'\\]|\\.)*'`)
	pipeRe   = regexp.MustCompile(`\|`)
)

func randomExample() string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	return keys[rand.Intn(len(keys))] //nolint:gosec
}

func cheapHighlighting(s present.Styles, code string) string {
	code = quotedRe.ReplaceAllStringFunc(code, func(x string) string {
		return s.Label.Render(x)
	})
	return pipeRe.ReplaceAllStringFunc(code, func(x string) string {
		return s.Stage.Render(x)
	})
}
