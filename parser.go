package main

import (
	"regexp"
	"strings"
)

// fencePattern matches a Markdown code fence, optionally tagged with a language.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ExtractJSON pulls a JSON array or object out of free-form model output.
//
// A fenced code block wins; otherwise the text between the earliest opening
// bracket and the latest closing bracket is returned; otherwise the trimmed
// input. The result is not guaranteed to be valid JSON.
func ExtractJSON(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "[{")
	end := strings.LastIndexAny(text, "]}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}
