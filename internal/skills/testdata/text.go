//go:build ignore

package text

import (
	"fmt"
	"strings"
)

func GetTools() []map[string]string {
	return []map[string]string{
		{
			"name":        "word_count",
			"description": "Counts the words in a text.",
			"schema":      `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		},
		{
			"name":        "shout",
			"description": "Upper-cases a text.",
		},
	}
}

func Run(name string, args map[string]interface{}) (string, error) {
	text, _ := args["text"].(string)
	switch name {
	case "word_count":
		return fmt.Sprint(len(strings.Fields(text))), nil
	case "shout":
		return strings.ToUpper(text), nil
	}
	return "", fmt.Errorf("unknown tool %s", name)
}
