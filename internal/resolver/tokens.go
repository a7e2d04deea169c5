package resolver

import (
	"regexp"
	"strings"
)

var tokenName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Expansion is the result of substituting one template
type Expansion struct {
	Text       string
	Unresolved []string
}

// token is a {name} occurrence; start and end index the braces
type token struct {
	name       string
	start, end int
}

// scan finds bare-brace tokens. A brace touching another brace, as in
// {{ name }} or {{name}}, never starts or ends a token.
func scan(s string) []token {
	var tokens []token
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		if (i > 0 && s[i-1] == '{') || (i+1 < len(s) && s[i+1] == '{') {
			continue
		}

		j := strings.IndexByte(s[i+1:], '}')
		if j < 0 {
			break
		}
		end := i + 1 + j
		if end+1 < len(s) && s[end+1] == '}' {
			continue
		}

		name := s[i+1 : end]
		if !tokenName.MatchString(name) {
			continue
		}
		tokens = append(tokens, token{name: name, start: i, end: end})
		i = end
	}
	return tokens
}

// Expand substitutes every token src can resolve in a single pass.
// Unresolved tokens are kept verbatim and reported.
func Expand(template string, src Source) Expansion {
	found := scan(template)
	if len(found) == 0 {
		return Expansion{Text: template}
	}

	var b strings.Builder
	var missing []string
	last := 0
	for _, t := range found {
		b.WriteString(template[last:t.start])
		if r := src.Lookup(t.name); r.Resolved {
			b.WriteString(r.Value)
		} else {
			b.WriteString(template[t.start : t.end+1])
			missing = append(missing, t.name)
		}
		last = t.end + 1
	}
	b.WriteString(template[last:])

	return Expansion{Text: b.String(), Unresolved: missing}
}

// Substitute is Expand without the unresolved report
func Substitute(template string, src Source) string {
	return Expand(template, src).Text
}
