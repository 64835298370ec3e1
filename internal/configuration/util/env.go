package util

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ExpandEnvStrict substitutes ${NAME} placeholders in a config body.
// Unlike os.ExpandEnv, an unset variable is an error rather than an
// empty expansion, and every missing name is reported in one pass.
func ExpandEnvStrict(s string) (string, error) {
	var missing []string

	expanded := placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return m
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("config: environment variables not set: %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}
