// Package secrets resolves credentials given inline or through a file.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source names a secret and where to find it. File wins over Value.
type Source struct {
	Name  string
	Value string
	File  string
}

func (s Source) label() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return "secret"
}

// Load resolves the trimmed secret. It fails when the file cannot be read or
// no non-empty value is found.
func Load(src Source) (string, error) {
	name := src.label()
	value := src.Value

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		value = string(data)
	}

	secret := strings.TrimSpace(value)
	switch {
	case secret != "":
		return secret, nil
	case file != "":
		return "", fmt.Errorf("%s file %q is empty", name, file)
	default:
		return "", fmt.Errorf("%s is not configured", name)
	}
}

// LoadOptional is Load for secrets that may be absent. An unset source
// resolves to an empty string.
func LoadOptional(src Source) (string, error) {
	if strings.TrimSpace(src.File) == "" && strings.TrimSpace(src.Value) == "" {
		return "", nil
	}
	return Load(src)
}

// Mask hides all but the last four characters, for logs.
func Mask(secret string) string {
	const visible = 4
	if len(secret) <= visible {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-visible) + secret[len(secret)-visible:]
}
