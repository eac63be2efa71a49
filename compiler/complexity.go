package compiler

import (
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	complexityLeaf        = 1
	complexityEnum        = 1
	complexityArray       = 1
	complexityRecord      = 1
	complexityEmptyObject = 1
	complexityObject      = 2
	complexityRef         = 2
	complexityOneOf       = 2
	complexityAllOf       = 2
	complexityAnyOf       = 3
)

// Complexity scores how much a schema's compiled form benefits from being
// hoisted into a named variable.
func Complexity(schema *openapi3.SchemaRef) int {
	return complexity(0, schema)
}

func complexity(current int, ref *openapi3.SchemaRef) int {
	if ref == nil {
		return current
	}
	if ref.Ref != "" {
		return current + complexityRef
	}
	s := ref.Value
	if s == nil {
		return current
	}

	types := s.Type.Slice()
	if len(types) > 1 {
		sum := 0
		for _, t := range types {
			sum += complexity(0, withType(s, t))
		}
		return current + complexityOneOf + sum
	}

	switch {
	case len(s.OneOf) > 0:
		return composite(current, complexityOneOf, s.OneOf)
	case len(s.AnyOf) > 0:
		return composite(current, complexityAnyOf, s.AnyOf)
	case len(s.AllOf) > 0:
		return composite(current, complexityAllOf, s.AllOf)
	}

	typ := ""
	if len(types) == 1 {
		typ = types[0]
	}

	switch {
	case isPrimitive(typ):
		if len(s.Enum) > 0 {
			return current + complexityLeaf + complexityEnum
		}
		return current + complexityLeaf
	case typ == openapi3.TypeArray:
		return complexityArray + complexity(current, s.Items)
	case typ == openapi3.TypeObject || len(s.Properties) > 0 || hasAdditional(s):
		if len(s.Properties) == 0 && hasAdditional(s) {
			if s.AdditionalProperties.Schema != nil && !isEmptySchema(s.AdditionalProperties.Schema) {
				return complexityRecord + complexity(current, s.AdditionalProperties.Schema)
			}
			return complexityRecord + current
		}
		if len(s.Properties) > 0 {
			sum := 0
			for _, p := range s.Properties {
				sum += complexity(0, p)
			}
			return current + complexityObject + sum
		}
		return current + complexityEmptyObject
	}
	return current
}

func composite(current, weight int, branches openapi3.SchemaRefs) int {
	if len(branches) == 1 {
		return weight + complexity(current, branches[0])
	}
	sum := 0
	for _, b := range branches {
		sum += complexity(0, b)
	}
	return current + weight + sum
}

func isPrimitive(typ string) bool {
	switch typ {
	case openapi3.TypeString, openapi3.TypeNumber, openapi3.TypeInteger, openapi3.TypeBoolean, openapi3.TypeNull:
		return true
	}
	return false
}

// hasAdditional reports whether additionalProperties allows extra keys.
func hasAdditional(s *openapi3.Schema) bool {
	ap := s.AdditionalProperties
	return (ap.Has != nil && *ap.Has) || ap.Schema != nil
}

func isEmptySchema(ref *openapi3.SchemaRef) bool {
	if ref == nil {
		return true
	}
	if ref.Ref != "" {
		return false
	}
	s := ref.Value
	if s == nil {
		return true
	}
	return len(s.Type.Slice()) == 0 && len(s.Properties) == 0 && s.Items == nil &&
		len(s.OneOf) == 0 && len(s.AnyOf) == 0 && len(s.AllOf) == 0 && len(s.Enum) == 0 &&
		s.AdditionalProperties.Has == nil && s.AdditionalProperties.Schema == nil
}

func withType(s *openapi3.Schema, typ string) *openapi3.SchemaRef {
	cp := *s
	cp.Type = &openapi3.Types{typ}
	return &openapi3.SchemaRef{Value: &cp}
}
