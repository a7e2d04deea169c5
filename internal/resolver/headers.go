package resolver

import (
	"bufio"
	"strings"
)

// ParseHeaders normalizes polling_headers into a header map. The value is
// either a mapping or a multi-line string of "Key: Value" or "Key=Value"
// lines, split on whichever separator comes first.
func ParseHeaders(raw any) map[string]string {
	headers := map[string]string{}

	switch val := raw.(type) {
	case nil:
	case map[string]any:
		for k, v := range val {
			if v == nil {
				continue
			}
			headers[k] = stringify(v)
		}
	case map[string]string:
		for k, v := range val {
			headers[k] = v
		}
	case string:
		scanner := bufio.NewScanner(strings.NewReader(val))
		for scanner.Scan() {
			key, value, ok := splitHeaderLine(scanner.Text())
			if ok {
				headers[key] = value
			}
		}
	}

	return headers
}

func splitHeaderLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	idx := strings.IndexAny(line, ":=")
	if idx <= 0 {
		return "", "", false
	}

	key := strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}
