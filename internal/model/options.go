package model

import (
	"fmt"
	"strconv"
	"strings"
)

type OptionType int

const (
	Bool OptionType = iota
	Int
	Float
	Text
)

func (t OptionType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	}
	return "string"
}

// OptionSpec describes one command-line style option. Bool options are
// bare flags; the rest take a value.
type OptionSpec struct {
	Name        string
	Description string
	Type        OptionType
	Default     string
}

type OptionDescriber interface {
	OptionSpecs() []OptionSpec
}

// JoinOptions renders opts as a single string, quoting elements that
// contain spaces or quotes.
func JoinOptions(opts []string) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		if o == "" || strings.ContainsAny(o, " \t\"\\") {
			o = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(o) + `"`
		}
		parts[i] = o
	}
	return strings.Join(parts, " ")
}

// SplitOptions is the inverse of JoinOptions.
func SplitOptions(s string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && inQuote && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == '"':
			inQuote = !inQuote
			started = true
		case (c == ' ' || c == '\t') && !inQuote:
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteByte(c)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if started {
		out = append(out, cur.String())
	}
	return out, nil
}

// OptionValues reads opts against specs. Bool flags map to "true"; absent
// options take their defaults. Unknown options are an error.
func OptionValues(specs []OptionSpec, opts []string) (map[string]string, error) {
	vals := make(map[string]string, len(specs))
	byName := make(map[string]OptionSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
		if s.Type == Bool {
			vals[s.Name] = "false"
		} else {
			vals[s.Name] = s.Default
		}
	}
	for i := 0; i < len(opts); i++ {
		name := strings.TrimPrefix(opts[i], "-")
		spec, ok := byName[name]
		if !ok || name == opts[i] {
			return nil, fmt.Errorf("unknown option %q", opts[i])
		}
		if spec.Type == Bool {
			vals[name] = "true"
			continue
		}
		if i+1 >= len(opts) {
			return nil, fmt.Errorf("option -%s needs a value", name)
		}
		i++
		if err := checkValue(spec, opts[i]); err != nil {
			return nil, err
		}
		vals[name] = opts[i]
	}
	return vals, nil
}

// BuildOptions renders vals as options, omitting values equal to the
// default and false flags.
func BuildOptions(specs []OptionSpec, vals map[string]string) ([]string, error) {
	var opts []string
	for _, s := range specs {
		v, ok := vals[s.Name]
		if !ok {
			continue
		}
		if err := checkValue(s, v); err != nil {
			return nil, err
		}
		if s.Type == Bool {
			if b, _ := strconv.ParseBool(v); b {
				opts = append(opts, "-"+s.Name)
			}
			continue
		}
		if v == s.Default {
			continue
		}
		opts = append(opts, "-"+s.Name, v)
	}
	return opts, nil
}

func checkValue(s OptionSpec, v string) error {
	var err error
	switch s.Type {
	case Bool:
		_, err = strconv.ParseBool(v)
	case Int:
		_, err = strconv.Atoi(v)
	case Float:
		_, err = strconv.ParseFloat(v, 64)
	}
	if err != nil {
		return fmt.Errorf("option -%s: invalid %s value %q", s.Name, s.Type, v)
	}
	return nil
}

// FloatValue reads a float option, falling back to def.
func FloatValue(vals map[string]string, name string, def float64) float64 {
	if v, err := strconv.ParseFloat(vals[name], 64); err == nil {
		return v
	}
	return def
}

func IntValue(vals map[string]string, name string, def int) int {
	if v, err := strconv.Atoi(vals[name]); err == nil {
		return v
	}
	return def
}
