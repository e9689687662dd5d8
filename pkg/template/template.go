// Package template renders Go text templates in action configuration against the run's data.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
)

// Data builds the template context of an action: the trigger payload and every result so far.
//
//	{{ .trigger.message }}
//	{{ .results.node_1.data.statusCode }}
func Data(triggerData map[string]any, results *models.Results) map[string]any {
	entries := make(map[string]any, results.Len())

	for _, key := range results.Keys() {
		result, _ := results.Get(key)
		if result == nil {
			continue
		}

		entries[key] = map[string]any{
			"kind":   result.Kind,
			"status": string(result.Status),
			"data":   result.Data,
		}
	}

	if triggerData == nil {
		triggerData = map[string]any{}
	}

	return map[string]any{
		"trigger": triggerData,
		"results": entries,
	}
}

// NeedsTemplating reports whether input contains a template action.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// RenderString executes the template and returns the text as produced.
// Inputs without template actions are returned unchanged.
func RenderString(templateStr string, data any) (string, error) {
	if !NeedsTemplating(templateStr) {
		return templateStr, nil
	}

	tmpl, err := template.
		New("action").
		Option("missingkey=zero").
		Funcs(funcs).
		Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// Render executes the template and converts the output to JSON values, numbers or booleans
// when it reads as one.
func Render(templateStr string, data any) (any, error) {
	rendered, err := RenderString(templateStr, data)
	if err != nil {
		return nil, err
	}

	result := strings.TrimSpace(rendered)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		if err := json.Unmarshal([]byte(result), &jsonResult); err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"rand": func(max int) int {
		if max <= 0 {
			return 0
		}

		num := make([]byte, 1)
		if _, err := rand.Read(num); err != nil {
			return 0
		}

		return int(num[0]) % max
	},
	"json": func(value any) (string, error) {
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", err
		}

		return string(encoded), nil
	},
	"default": func(fallback, value any) any {
		if value == nil || value == "" {
			return fallback
		}

		return value
	},
}
