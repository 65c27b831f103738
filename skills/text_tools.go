//go:build ignore

// Example skill. planloop interprets this file at startup; it is not part of
// the build.
package text

import (
	"fmt"
	"strings"
)

func GetTools() []map[string]string {
	return []map[string]string{
		{
			"name":        "word_count",
			"description": "Counts the words in a piece of text.",
			"schema":      `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		},
		{
			"name":        "reverse_text",
			"description": "Reverses a piece of text character by character.",
			"schema":      `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		},
	}
}

func Run(name string, args map[string]interface{}) (string, error) {
	text, _ := args["text"].(string)
	switch name {
	case "word_count":
		return fmt.Sprint(len(strings.Fields(text))), nil
	case "reverse_text":
		r := []rune(text)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r), nil
	}
	return "", fmt.Errorf("unknown tool %s", name)
}
