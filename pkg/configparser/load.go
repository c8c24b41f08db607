package configparser

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadYamlFile reads a YAML file and loads its leaves into the environment.
// Nested keys are joined with "_" and upper-cased:
//
//	server:
//	  base_url: http://...   ->  SERVER_BASE_URL
//
// Variables that are already set win over the file. A value of the form
// ${VAR:-default} takes VAR from the environment or falls back to default.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	vars, err := Flatten(data)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, vars[key]); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}

	return nil
}

// Flatten turns a YAML document into env-style key/value pairs.
func Flatten(data []byte) (map[string]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}

	vars := map[string]string{}
	if len(root.Content) == 0 {
		return vars, nil
	}
	if err := flatten(root.Content[0], nil, vars); err != nil {
		return nil, err
	}
	return vars, nil
}

func flatten(node *yaml.Node, prefix []string, out map[string]string) error {
	key := strings.ToUpper(strings.Join(prefix, "_"))

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := strings.TrimSpace(node.Content[i].Value)
			if err := flatten(node.Content[i+1], append(prefix[:len(prefix):len(prefix)], name), out); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("key %s: only lists of scalars are supported", key)
			}
			items = append(items, substitute(item.Value))
		}
		out[key] = strings.Join(items, ",")
	case yaml.ScalarNode:
		if key == "" || node.Tag == "!!null" {
			return nil
		}
		out[key] = substitute(node.Value)
	case yaml.AliasNode:
		return flatten(node.Alias, prefix, out)
	}
	return nil
}

// substitute resolves ${VAR:-default}.
func substitute(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}

	inner := value[2 : len(value)-1]
	name, def, hasDefault := strings.Cut(inner, ":-")
	if env := os.Getenv(strings.TrimSpace(name)); env != "" {
		return env
	}
	if hasDefault {
		return strings.TrimSpace(def)
	}
	return ""
}

// quoteIfNeeded is used by Dump to keep values readable.
func quoteIfNeeded(v string) string {
	if v == "" || strings.ContainsAny(v, " #:") {
		return strconv.Quote(v)
	}
	return v
}
