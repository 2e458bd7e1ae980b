package stage

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kingrea/spanweave/internal/errs"
)

// Config carries stage-specific options (opaque to the pipeline). Values may
// come from code, from decoded YAML (bool, int, []any) or from command-line
// overrides (always strings); the accessors accept all three.
type Config map[string]any

// Clone returns a shallow copy of the config map.
func (cfg Config) Clone() Config {
	if len(cfg) == 0 {
		return nil
	}
	clone := make(Config, len(cfg))
	for key, value := range cfg {
		clone[key] = value
	}
	return clone
}

// Bool reads a boolean option, returning def when it is absent.
func (cfg Config) Bool(stageID, key string, def bool) (bool, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def, errs.Configf(stageID, key, "expected a boolean, got %q", v)
		}
		return b, nil
	default:
		return def, errs.Configf(stageID, key, "expected a boolean, got %T", raw)
	}
}

// String reads a string option, returning def when it is absent or blank.
func (cfg Config) String(stageID, key, def string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return def, nil
	}
	v, isString := raw.(string)
	if !isString {
		return def, errs.Configf(stageID, key, "expected a string, got %T", raw)
	}
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return v, nil
}

// Int reads an integer option, returning def when it is absent.
func (cfg Config) Int(stageID, key string, def int) (int, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return def, errs.Configf(stageID, key, "expected an integer, got %v", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def, errs.Configf(stageID, key, "expected an integer, got %q", v)
		}
		return n, nil
	default:
		return def, errs.Configf(stageID, key, "expected an integer, got %T", raw)
	}
}

// Strings reads a list option. A string value is split on commas.
func (cfg Config) Strings(stageID, key string, def []string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return def, nil
	}
	var out []string
	switch v := raw.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for i, item := range v {
			s, isString := item.(string)
			if !isString {
				return def, errs.Configf(stageID, key, "element %d: expected a string, got %T", i, item)
			}
			out = append(out, s)
		}
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		out = strings.Split(v, ",")
	default:
		return def, errs.Configf(stageID, key, "expected a list of strings, got %T", raw)
	}
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out, nil
}

// Unknown returns the option keys not listed in known, for stages that reject
// typos instead of silently ignoring them.
func (cfg Config) Unknown(known ...string) []string {
	allowed := make(map[string]struct{}, len(known))
	for _, k := range known {
		allowed[k] = struct{}{}
	}
	var out []string
	for key := range cfg {
		if _, ok := allowed[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// RejectUnknown reports the first unexpected option as a configuration error.
func (cfg Config) RejectUnknown(stageID string, known ...string) error {
	if extra := cfg.Unknown(known...); len(extra) > 0 {
		return errs.Configf(stageID, extra[0], "unknown option (known: %s)", strings.Join(known, ", "))
	}
	return nil
}
