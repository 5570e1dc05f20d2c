// SPDX-License-Identifier: MPL-2.0

package eval

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
)

// VarGameVersion holds the target game version during evaluation.
const VarGameVersion = "MINECRAFT_VERSION"

var reservedVars = []string{VarGameVersion}

// VarStore is an insertion-ordered, case-sensitive string variable store.
type VarStore struct {
	names  []string
	values map[string]string
}

// NewVarStore returns an empty store.
func NewVarStore() *VarStore {
	return &VarStore{values: make(map[string]string)}
}

// IsReservedVar reports whether name is a constant that scripts cannot set.
func IsReservedVar(name string) bool {
	return slices.Contains(reservedVars, name)
}

// SeedReserved sets the reserved constants from the instance.
func (s *VarStore) SeedReserved(c *evalctx.Constants) {
	s.put(VarGameVersion, c.Version)
}

// Set assigns a variable. Reserved constants cannot be assigned.
func (s *VarStore) Set(name, value string) error {
	if IsReservedVar(name) {
		return fmt.Errorf("%w: %s", ErrReservedVariable, name)
	}
	s.put(name, value)
	return nil
}

func (s *VarStore) put(name, value string) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

// Get returns a variable's value.
func (s *VarStore) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Defined reports whether the variable has been set.
func (s *VarStore) Defined(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Names returns the variable names in the order they were first set.
func (s *VarStore) Names() []string {
	return slices.Clone(s.names)
}

// Substitute expands ${name} tokens in text. Undefined names expand to the
// empty string and a backslash makes the next character literal. A '$' not
// followed by '{', or an unterminated token, is kept as written.
func (s *VarStore) Substitute(text string) string {
	var out strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\\' && i+1 < len(runes):
			i++
			out.WriteRune(runes[i])
		case c == '$' && i+1 < len(runes) && runes[i+1] == '{':
			end := slices.Index(runes[i+2:], '}')
			if end < 0 {
				out.WriteString(string(runes[i:]))
				return out.String()
			}
			name := string(runes[i+2 : i+2+end])
			if v, ok := s.values[name]; ok {
				out.WriteString(v)
			}
			i += end + 2
		default:
			out.WriteRune(c)
		}
	}
	return out.String()
}

// Resolve returns the string a value stands for. Constants are substituted;
// variables must be defined.
func (s *VarStore) Resolve(v script.Value) (string, error) {
	switch v.Kind {
	case script.ValueConstant:
		return s.Substitute(v.Text), nil
	case script.ValueVar:
		val, ok := s.values[v.Text]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUndefinedVariable, v.Text)
		}
		return val, nil
	default:
		return "", ErrEmptyValue
	}
}

// ResolveOptional is Resolve, except that an absent value yields "".
func (s *VarStore) ResolveOptional(v script.Value) (string, error) {
	if v.IsNone() {
		return "", nil
	}
	return s.Resolve(v)
}

// ResolveAll resolves each value in order.
func (s *VarStore) ResolveAll(vs []script.Value) ([]string, error) {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		str, err := s.Resolve(v)
		if err != nil {
			return nil, err
		}
		out = append(out, str)
	}
	return out, nil
}
