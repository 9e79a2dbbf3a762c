package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where an API key may come from. Lookups happen in this
// order: File, Value, the file named by FileEnv, then ValueEnv.
type Source struct {
	// Name is used in error messages, e.g. "gemini api key".
	Name string
	// File is a path from the configuration file.
	File string
	// Value is an inline key from the configuration file.
	Value string
	// FileEnv names an environment variable holding a path to the key.
	FileEnv string
	// ValueEnv names an environment variable holding the key itself.
	ValueEnv string
}

// Load returns the first non-empty secret found in src, trimmed.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		return readFile(name, file)
	}

	if value := strings.TrimSpace(src.Value); value != "" {
		return value, nil
	}

	if src.FileEnv != "" {
		if file := strings.TrimSpace(os.Getenv(src.FileEnv)); file != "" {
			return readFile(name, file)
		}
	}

	if src.ValueEnv != "" {
		if value := strings.TrimSpace(os.Getenv(src.ValueEnv)); value != "" {
			return value, nil
		}
	}

	return "", fmt.Errorf("%s is not configured%s", name, hint(src))
}

func readFile(name, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%s file %q is empty", name, file)
	}

	return secret, nil
}

func hint(src Source) string {
	var envs []string
	for _, env := range []string{src.FileEnv, src.ValueEnv} {
		if env != "" {
			envs = append(envs, env)
		}
	}
	if len(envs) == 0 {
		return ""
	}
	return " (set " + strings.Join(envs, " or ") + ")"
}
