package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var integerToken = regexp.MustCompile(`-?\d+`)

// FirstScore returns the first integer token in raw that lies within [0,100].
// Signed tokens are skipped.
func FirstScore(raw string) (int, bool) {
	for _, tok := range integerToken.FindAllString(raw, -1) {
		if strings.HasPrefix(tok, "-") || len(tok) > 3 {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if n <= 100 {
			return n, true
		}
	}
	return 0, false
}
