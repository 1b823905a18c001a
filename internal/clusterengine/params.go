package clusterengine

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"

	"github.com/imamik/cloudbroker/internal/cloud"
)

// ValidateParams checks params against the parameter definitions of a
// cluster type and returns the normalized set with defaults applied.
//
// When prev is non-nil the call validates an update: omitted parameters keep
// their previous value and immutable parameters must not change.
func ValidateParams(clusterType ClusterType, params, prev map[string]any) (map[string]any, error) {
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if _, ok := clusterType.Parameter(name); !ok {
			return nil, cloud.BadInputError("Unrecognised parameter '%s' for cluster type '%s'.", name, clusterType.Name)
		}
	}

	result := make(map[string]any, len(clusterType.Parameters))
	for _, p := range clusterType.Parameters {
		value, given := params[p.Name]
		old, hadOld := prev[p.Name]
		switch {
		case given && value != nil:
			normalized, err := coerce(p, value)
			if err != nil {
				return nil, err
			}
			if prev != nil && p.Immutable && hadOld && !reflect.DeepEqual(normalized, old) {
				return nil, cloud.BadInputError("Parameter '%s' cannot be changed.", p.Name)
			}
			result[p.Name] = normalized
		case prev != nil && hadOld:
			result[p.Name] = old
		case p.Default != nil:
			result[p.Name] = p.Default
		case p.Required:
			return nil, cloud.BadInputError("Parameter '%s' is required.", p.Name)
		}
	}
	return result, nil
}

// coerce converts a raw value to the kind of its parameter.
func coerce(p Parameter, value any) (any, error) {
	invalid := func() error {
		return cloud.BadInputError("Parameter '%s' must be a valid %s.", p.Name, p.Kind)
	}
	switch p.Kind {
	case KindInteger:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, invalid()
			}
			return int(v), nil
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, invalid()
			}
			return n, nil
		}
	case KindNumber:
		switch v := value.(type) {
		case int:
			return float64(v), nil
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, invalid()
			}
			return f, nil
		}
	case KindBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, invalid()
			}
			return b, nil
		}
	case KindChoice:
		s := fmt.Sprint(value)
		if !slices.Contains(p.Options, s) {
			return nil, cloud.BadInputError("Parameter '%s' must be one of %v.", p.Name, p.Options)
		}
		return s, nil
	default:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	}
	return nil, invalid()
}
