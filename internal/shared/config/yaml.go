package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadYAMLFile reads a flat YAML mapping (port: 8080, llm_provider: openai)
// and returns it keyed by the matching env var name. Missing or invalid
// files yield an empty map.
func loadYAMLFile(path string) map[string]string {
	path = strings.TrimSpace(path)
	if path == "" {
		return map[string]string{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config file %s not readable: %v", path, err)
		return map[string]string{}
	}
	values, err := parseYAML(data)
	if err != nil {
		log.Printf("config file %s invalid: %v", path, err)
		return map[string]string{}
	}
	return values
}

func parseYAML(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		switch val := v.(type) {
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return out, nil
}
