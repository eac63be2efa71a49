package depgraph

import (
	"fmt"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(name string) string {
	return "#/components/schemas/" + name
}

func refSchema(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(ref(name), nil)
}

func object(props map[string]*openapi3.SchemaRef) *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema()
	s.Properties = props
	return openapi3.NewSchemaRef("", s)
}

func derefFrom(schemas map[string]*openapi3.SchemaRef) DerefFunc {
	return func(r string) (*openapi3.SchemaRef, error) {
		for name, s := range schemas {
			if ref(name) == r {
				return s, nil
			}
		}
		return nil, fmt.Errorf("schema not found: %s", r)
	}
}

func rootsOf(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, ref(n))
	}
	return out
}

func TestBuild(t *testing.T) {
	t.Run("records direct and deep edges", func(t *testing.T) {
		schemas := map[string]*openapi3.SchemaRef{
			"A": object(map[string]*openapi3.SchemaRef{"b": refSchema("B")}),
			"B": object(map[string]*openapi3.SchemaRef{
				"c": openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(&openapi3.Schema{})),
			}),
			"C": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}
		schemas["B"].Value.Properties["c"].Value.Items = refSchema("C")

		g, err := Build(rootsOf("A", "B", "C"), derefFrom(schemas))
		require.NoError(t, err)

		assert.Equal(t, []string{ref("B")}, g.Direct[ref("A")].Sorted())
		assert.Equal(t, []string{ref("C")}, g.Direct[ref("B")].Sorted())
		assert.Equal(t, []string{ref("B"), ref("C")}, g.Deep[ref("A")].Sorted())
		assert.False(t, g.IsCircular(ref("A")))
		assert.False(t, g.IsCircular(ref("C")))
	})

	t.Run("composition and additionalProperties keep the from context", func(t *testing.T) {
		withMap := openapi3.NewObjectSchema()
		withMap.AdditionalProperties = openapi3.AdditionalProperties{Schema: refSchema("C")}
		schemas := map[string]*openapi3.SchemaRef{
			"A": openapi3.NewSchemaRef("", &openapi3.Schema{
				OneOf: openapi3.SchemaRefs{refSchema("B"), openapi3.NewSchemaRef("", withMap)},
			}),
			"B": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
			"C": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}

		g, err := Build(rootsOf("A"), derefFrom(schemas))
		require.NoError(t, err)
		assert.Equal(t, []string{ref("B"), ref("C")}, g.Direct[ref("A")].Sorted())
	})

	t.Run("detects mutual and self cycles", func(t *testing.T) {
		schemas := map[string]*openapi3.SchemaRef{
			"User": object(map[string]*openapi3.SchemaRef{
				"name":   openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
				"middle": refSchema("Middle"),
			}),
			"Middle": object(map[string]*openapi3.SchemaRef{"user": refSchema("User")}),
			"Node":   object(map[string]*openapi3.SchemaRef{"next": refSchema("Node")}),
			"Leaf":   object(map[string]*openapi3.SchemaRef{"user": refSchema("User")}),
		}

		g, err := Build(rootsOf("Leaf", "Middle", "Node", "User"), derefFrom(schemas))
		require.NoError(t, err)

		assert.True(t, g.IsCircular(ref("User")))
		assert.True(t, g.IsCircular(ref("Middle")))
		assert.True(t, g.IsCircular(ref("Node")))
		assert.False(t, g.IsCircular(ref("Leaf")))
		assert.Equal(t, []string{ref("Middle"), ref("User")}, g.Deep[ref("Leaf")].Sorted())
	})

	t.Run("propagates missing refs", func(t *testing.T) {
		schemas := map[string]*openapi3.SchemaRef{
			"A": object(map[string]*openapi3.SchemaRef{"b": refSchema("Missing")}),
		}
		_, err := Build(rootsOf("A"), derefFrom(schemas))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Missing")
	})
}

func TestSort(t *testing.T) {
	t.Run("dependencies come first", func(t *testing.T) {
		schemas := map[string]*openapi3.SchemaRef{
			"A": object(map[string]*openapi3.SchemaRef{"b": refSchema("B"), "c": refSchema("C")}),
			"B": object(map[string]*openapi3.SchemaRef{"c": refSchema("C")}),
			"C": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
			"D": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}
		g, err := Build(rootsOf("A", "B", "C", "D"), derefFrom(schemas))
		require.NoError(t, err)

		order, err := Sort(g)
		require.NoError(t, err)
		require.Len(t, order, 4)
		assertBefore(t, order, ref("C"), ref("B"))
		assertBefore(t, order, ref("B"), ref("A"))
		assert.Contains(t, order, ref("D"))
	})

	t.Run("cycles are kept together and dependents follow", func(t *testing.T) {
		schemas := map[string]*openapi3.SchemaRef{
			"User":   object(map[string]*openapi3.SchemaRef{"middle": refSchema("Middle"), "tag": refSchema("Tag")}),
			"Middle": object(map[string]*openapi3.SchemaRef{"user": refSchema("User")}),
			"Tag":    openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
			"Leaf":   object(map[string]*openapi3.SchemaRef{"user": refSchema("User")}),
			"Node":   object(map[string]*openapi3.SchemaRef{"next": refSchema("Node")}),
		}
		g, err := Build(rootsOf("Leaf", "Middle", "Node", "Tag", "User"), derefFrom(schemas))
		require.NoError(t, err)

		order, err := Sort(g)
		require.NoError(t, err)
		assert.ElementsMatch(t, rootsOf("Leaf", "Middle", "Node", "Tag", "User"), order)
		assertBefore(t, order, ref("Tag"), ref("User"))
		assertBefore(t, order, ref("Tag"), ref("Middle"))
		assertBefore(t, order, ref("User"), ref("Leaf"))
		assertBefore(t, order, ref("Middle"), ref("Leaf"))
	})

	t.Run("is deterministic", func(t *testing.T) {
		schemas := map[string]*openapi3.SchemaRef{
			"A": object(map[string]*openapi3.SchemaRef{"x": refSchema("X")}),
			"B": object(map[string]*openapi3.SchemaRef{"x": refSchema("X")}),
			"X": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		}
		g, err := Build(rootsOf("A", "B", "X"), derefFrom(schemas))
		require.NoError(t, err)

		first, err := Sort(g)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := Sort(g)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func assertBefore(t *testing.T, order []string, first, second string) {
	t.Helper()
	i, j := -1, -1
	for idx, r := range order {
		if r == first {
			i = idx
		}
		if r == second {
			j = idx
		}
	}
	require.NotEqual(t, -1, i, "%s missing from order", first)
	require.NotEqual(t, -1, j, "%s missing from order", second)
	assert.Less(t, i, j, "%s must come before %s in %v", first, second, order)
}
