// Package parameters handles generic configuration Params, a map[string]string that the
// user can set, either as a configuration string ("mcts,search_time=0.5") or as a YAML file.
package parameters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/generics"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Params represent generic configuration parameters.
type Params map[string]string

// NewFromConfigString create params from user's configuration string.
// See GetParamOr and PopParamOr to parse values from this map.
func NewFromConfigString(config string) Params {
	params := make(Params)
	parts := strings.Split(config, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		subParts := strings.SplitN(part, "=", 2) // Split into up to 2 parts to handle '=' in values
		if len(subParts) == 1 {
			params[subParts[0]] = ""
		} else if len(subParts) == 2 {
			params[subParts[0]] = subParts[1]
		}
	}
	return params
}

// NewFromYAML creates params from a flat YAML mapping. Scalar values are converted to their string
// representation, so they can be parsed with GetParamOr.
func NewFromYAML(data []byte) (Params, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML parameters")
	}
	return fromMapping(raw)
}

// SectionsFromYAML parses a YAML document whose top-level keys are section names, each holding a
// flat mapping of parameters. E.g.:
//
//	first:
//	  agent: mcts
//	  search_time: 0.5
//	second:
//	  agent: alpha_beta
//	  depth_limit: 4
func SectionsFromYAML(data []byte) (map[string]Params, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML parameter sections")
	}
	sections := make(map[string]Params, len(raw))
	for name, mapping := range raw {
		params, err := fromMapping(mapping)
		if err != nil {
			return nil, errors.WithMessagef(err, "in section %q", name)
		}
		sections[name] = params
	}
	return sections, nil
}

func fromMapping(raw map[string]any) (Params, error) {
	params := make(Params, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			params[key] = ""
		case string, bool, int, int64, uint64, float64:
			params[key] = fmt.Sprint(v)
		default:
			return nil, errors.Errorf("parameter %q has a non-scalar value (%T)", key, value)
		}
	}
	return params, nil
}

// String returns the params as a configuration string, with sorted keys.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for key, value := range generics.SortedKeysAndValues(p) {
		if value == "" {
			parts = append(parts, key)
		} else {
			parts = append(parts, key+"="+value)
		}
	}
	return strings.Join(parts, ",")
}

// PopParamOr is like GetParamOr, but it also deletes from the params map the retrieved parameter.
func PopParamOr[T interface {
	bool | int | float32 | float64 | string | time.Duration
}](params Params, key string, defaultValue T) (T, error) {
	value, err := GetParamOr(params, key, defaultValue)
	if err != nil {
		return value, err
	}
	delete(params, key)
	return value, nil
}

// GetParamOr attempts to parse a parameter to the given type if the key is present, or returns the defaultValue
// if not.
//
// For bool types, a key without a value is interpreted as true.
// For time.Duration, either a Go duration ("1m30s") or a plain number of seconds ("0.5") is accepted.
func GetParamOr[T interface {
	bool | int | float32 | float64 | string | time.Duration
}](params Params, key string, defaultValue T) (T, error) {
	vAny := (any)(defaultValue)
	var t T
	toT := func(v any) T { return v.(T) }
	switch vAny.(type) {
	case string:
		if value, exists := params[key]; exists {
			return toT(value), nil
		}
	case int:
		if value, exists := params[key]; exists && value != "" {
			parsedValue, err := strconv.Atoi(value)
			if err != nil {
				return t, errors.Wrapf(err, "failed to parse configuration %s=%q to int", key, value)
			}
			return toT(parsedValue), nil
		}
	case float32:
		if value, exists := params[key]; exists && value != "" {
			parsedValue, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
			}
			return toT(float32(parsedValue)), nil
		}
	case float64:
		if value, exists := params[key]; exists && value != "" {
			parsedValue, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
			}
			return toT(parsedValue), nil
		}
	case time.Duration:
		if value, exists := params[key]; exists && value != "" {
			if seconds, err := strconv.ParseFloat(value, 64); err == nil {
				return toT(time.Duration(seconds * float64(time.Second))), nil
			}
			parsedValue, err := time.ParseDuration(value)
			if err != nil {
				return t, errors.Wrapf(err, "failed to parse configuration %s=%q to duration", key, value)
			}
			return toT(parsedValue), nil
		}
	case bool:
		if value, exists := params[key]; exists {
			if value == "" || strings.ToLower(value) == "true" || value == "1" { // Empty value is considered "true"
				return toT(true), nil
			}
			if strings.ToLower(value) == "false" || value == "0" {
				return toT(false), nil
			}
			return defaultValue, errors.Errorf("failed to parse configuration %s=%q to bool", key, value)
		}
	}
	return defaultValue, nil
}
