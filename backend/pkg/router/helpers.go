package router

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var paramNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateRouteSpec validates a RouteSpec.
func validateRouteSpec(spec RouteSpec) error {
	if spec.OperationID == "" {
		return errors.New("field OperationID required")
	}

	if spec.Summary == "" {
		return errors.New("field Summary required")
	}

	if spec.Description == "" {
		return errors.New("field Description required")
	}

	if spec.Group == "" {
		return errors.New("field Group required")
	}

	if spec.Handler == nil {
		return errors.New("field Handler required")
	}

	return nil
}

// extractParamNames returns the {name} placeholders of one path section. A chi
// regexp suffix ({name:[0-9]+}) is ignored.
func extractParamNames(section string) ([]string, error) {
	var names []string
	for {
		start := strings.IndexByte(section, '{')
		if start < 0 {
			if strings.IndexByte(section, '}') >= 0 {
				return nil, errors.New("unmatched '}'")
			}
			return names, nil
		}
		end := strings.IndexByte(section[start:], '}')
		if end < 0 {
			return nil, errors.New("unmatched '{'")
		}
		name, _, _ := strings.Cut(section[start+1:start+end], ":")
		names = append(names, name)
		section = section[start+end+1:]
	}
}

// validateParameters checks that path placeholders and documented path parameters
// agree, and returns the documented parameter names sorted.
func validateParameters(spec RouteSpec) ([]string, error) {
	paramsInPath := map[string]struct{}{}
	documentedPathParams := map[string]struct{}{}

	for section := range strings.SplitSeq(spec.fullPath, "/") {
		names, err := extractParamNames(section)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", spec.fullPath, err)
		}
		for _, name := range names {
			if !paramNameRe.MatchString(name) {
				return nil, fmt.Errorf("invalid parameter name %q in path %s", name, spec.fullPath)
			}
			paramsInPath[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(spec.Parameters))
	for name, paramSpec := range spec.Parameters {
		if name == "" {
			return nil, fmt.Errorf("parameter name required for %s %s", spec.method, spec.fullPath)
		}

		if paramSpec.Description == "" {
			return nil, fmt.Errorf("parameter Description required for %s %s", spec.method, spec.fullPath)
		}

		validInValues := []ParameterIn{ParameterInPath, ParameterInQuery, ParameterInHeader}
		if !slices.Contains(validInValues, paramSpec.In) {
			return nil, fmt.Errorf("parameter In must be one of %v for %s %s", validInValues, spec.method, spec.fullPath)
		}

		if paramSpec.In == ParameterInPath {
			if _, exists := paramsInPath[name]; !exists {
				return nil, fmt.Errorf("documented path parameter %s not found in path", name)
			}

			if !paramSpec.Required {
				return nil, fmt.Errorf("path parameter %s must be required", name)
			}

			documentedPathParams[name] = struct{}{}
		}

		names = append(names, name)
	}

	for name := range paramsInPath {
		if _, exists := documentedPathParams[name]; !exists {
			return nil, fmt.Errorf("path parameter %s not documented", name)
		}
	}

	slices.Sort(names)
	return names, nil
}
