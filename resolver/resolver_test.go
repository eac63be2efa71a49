package resolver

import (
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc(schemas openapi3.Schemas) *openapi3.T {
	return &openapi3.T{
		OpenAPI:    "3.0.3",
		Components: &openapi3.Components{Schemas: schemas},
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pet", "Pet"},
		{"pet-store", "pet_store"},
		{"pet  store", "pet_store"},
		{"1Pet", "_1Pet"},
		{"Pet.Item", "Pet_Item"},
		{"Café", "Cafe"},
		{"a--b", "a_b"},
		{"", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("memoizes resolution", func(t *testing.T) {
		r := New(newDoc(openapi3.Schemas{
			"Pet": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}))

		first := r.Resolve("#/components/schemas/Pet")
		second := r.Resolve("#/components/schemas/Pet")
		assert.Equal(t, first, second)
		assert.Equal(t, "Pet", first.Name)
		assert.Equal(t, "Pet", first.NormalizedName)

		s1, err := r.Dereference("#/components/schemas/Pet")
		require.NoError(t, err)
		s2, err := r.Dereference("#/components/schemas/Pet")
		require.NoError(t, err)
		assert.Same(t, s1.Value, s2.Value)
	})

	t.Run("disambiguates colliding names", func(t *testing.T) {
		r := New(newDoc(openapi3.Schemas{
			"pet-item": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
			"pet_item": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
			"pet item": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}))

		seen := map[string]string{}
		for _, ref := range r.SchemaRefs() {
			name := r.Resolve(ref).NormalizedName
			prev, dup := seen[name]
			assert.False(t, dup, "%s and %s share name %s", prev, ref, name)
			seen[name] = ref
		}
		assert.Contains(t, seen, "pet_item")
		assert.Contains(t, seen, "pet_item__2")
		assert.Contains(t, seen, "pet_item__3")
	})

	t.Run("independent resolvers do not share names", func(t *testing.T) {
		a := New(newDoc(openapi3.Schemas{"x-y": openapi3.NewSchemaRef("", openapi3.NewStringSchema())}))
		b := New(newDoc(openapi3.Schemas{"x_y": openapi3.NewSchemaRef("", openapi3.NewStringSchema())}))
		assert.Equal(t, "x_y", a.Resolve("#/components/schemas/x-y").NormalizedName)
		assert.Equal(t, "x_y", b.Resolve("#/components/schemas/x_y").NormalizedName)
	})
}

func TestResolver_Dereference(t *testing.T) {
	pet := openapi3.NewObjectSchema().WithProperty("name", openapi3.NewStringSchema())
	r := New(newDoc(openapi3.Schemas{
		"Pet":   openapi3.NewSchemaRef("", pet),
		"Alias": openapi3.NewSchemaRef("#/components/schemas/Pet", nil),
	}))

	t.Run("follows aliases", func(t *testing.T) {
		s, err := r.Dereference("#/components/schemas/Alias")
		require.NoError(t, err)
		assert.Same(t, pet, s.Value)
		assert.Empty(t, s.Ref)
	})

	t.Run("missing schema", func(t *testing.T) {
		_, err := r.Dereference("#/components/schemas/Nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSchemaNotFound))
		assert.Contains(t, err.Error(), "#/components/schemas/Nope")
	})

	t.Run("foreign container", func(t *testing.T) {
		_, err := r.Dereference("#/definitions/Pet")
		assert.ErrorIs(t, err, ErrSchemaNotFound)
	})

	t.Run("name lookups", func(t *testing.T) {
		ref, ok := r.RefOf("Pet")
		assert.True(t, ok)
		assert.Equal(t, "#/components/schemas/Pet", ref)
		assert.True(t, r.IsSchemaName("Alias"))
		assert.False(t, r.IsSchemaName("Nope"))
	})
}
