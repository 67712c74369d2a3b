package actions

import (
	"fmt"
	"strings"

	"github.com/ternarybob/argus/internal/models"
)

// Args holds parsed action arguments: either a name-keyed map or an ordered
// positional list, matching how the caller wrote the command tail.
type Args struct {
	Named      map[string]string
	Positional []string
}

// IsNamed reports whether the arguments were given as name=value pairs
func (a Args) IsNamed() bool {
	return a.Named != nil
}

// Get returns the argument for the named spec entry, resolving positional
// arguments through the spec's declared order.
func (a Args) Get(spec *models.ActionSpec, name string) (string, bool) {
	if a.Named != nil {
		v, ok := a.Named[name]
		return v, ok
	}
	if spec == nil {
		return "", false
	}
	for i, arg := range spec.Args {
		if arg.Name == name && i < len(a.Positional) {
			return a.Positional[i], true
		}
	}
	return "", false
}

// token is one shell-style token plus whether it contained an unquoted '='
type token struct {
	text       string
	unquotedEq bool
}

// tokenize splits a command tail with shell-style quoting. Single and
// double quotes are equal in effect and may contain spaces and '='.
// An unterminated quote is an error.
func tokenize(s string) ([]token, error) {
	var tokens []token
	var cur strings.Builder
	curEq := false
	started := false
	var quote rune

	flush := func() {
		if started {
			tokens = append(tokens, token{text: cur.String(), unquotedEq: curEq})
			cur.Reset()
			curEq = false
			started = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			if r == '=' {
				curEq = true
			}
			cur.WriteRune(r)
			started = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	flush()
	return tokens, nil
}

// ParseArgs parses the raw tail after the command token.
//
// If any token contains an unquoted '=', the tail is treated as name=value
// pairs and a map is returned. Otherwise an ordered positional list is
// returned. If tokenization fails the entire raw string becomes a single
// positional argument. An empty tail yields an empty positional list.
func ParseArgs(tail string) Args {
	trimmed := strings.TrimSpace(tail)
	if trimmed == "" {
		return Args{Positional: []string{}}
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return Args{Positional: []string{trimmed}}
	}

	named := false
	for _, t := range tokens {
		if t.unquotedEq {
			named = true
			break
		}
	}

	if named {
		m := make(map[string]string, len(tokens))
		for _, t := range tokens {
			idx := strings.Index(t.text, "=")
			if idx <= 0 {
				// Mixed form: a bare token among pairs. Fall back to the
				// positional interpretation.
				named = false
				break
			}
			m[t.text[:idx]] = t.text[idx+1:]
		}
		if named {
			return Args{Named: m}
		}
	}

	positional := make([]string, len(tokens))
	for i, t := range tokens {
		positional[i] = t.text
	}
	return Args{Positional: positional}
}

// ValidateArgs checks parsed arguments against a spec. A nil spec accepts
// anything (passthrough to extension actions without a declared schema).
func ValidateArgs(spec *models.ActionSpec, args Args) error {
	if spec == nil {
		return nil
	}

	if args.IsNamed() {
		known := make(map[string]bool, len(spec.Args))
		for _, a := range spec.Args {
			known[a.Name] = true
		}
		for name := range args.Named {
			if !known[name] {
				return fmt.Errorf("unknown argument %q for action %s", name, spec.Name)
			}
		}
		for _, a := range spec.Args {
			if !a.Required {
				continue
			}
			if _, ok := args.Named[a.Name]; !ok {
				return fmt.Errorf("missing required argument %q for action %s", a.Name, spec.Name)
			}
		}
		return nil
	}

	required := len(spec.RequiredArgs())
	if len(args.Positional) < required {
		return fmt.Errorf("action %s requires %d argument(s), got %d", spec.Name, required, len(args.Positional))
	}
	if len(args.Positional) > len(spec.Args) {
		return fmt.Errorf("action %s accepts at most %d argument(s), got %d", spec.Name, len(spec.Args), len(args.Positional))
	}
	return nil
}

// SplitCommand splits a raw command string into the action name and the
// argument tail. A leading '/' on the name is accepted and stripped.
func SplitCommand(command string) (string, string) {
	trimmed := strings.TrimSpace(command)
	trimmed = strings.TrimPrefix(trimmed, "/")
	name, tail, _ := strings.Cut(trimmed, " ")
	return name, strings.TrimSpace(tail)
}
