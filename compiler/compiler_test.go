package compiler

import (
	"errors"
	"testing"

	"github.com/coze-dev/openapi-zod-gen/resolver"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstore = `
openapi: 3.0.0
info: {title: petstore, version: "1"}
paths: {}
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        id: {type: integer}
        name: {type: string}
    User:
      type: object
      properties:
        name: {type: string}
        middle: {$ref: '#/components/schemas/Middle'}
    Middle:
      type: object
      properties:
        user: {$ref: '#/components/schemas/User'}
    Cat:
      type: object
      required: [kind]
      properties:
        kind: {type: string, enum: [cat]}
    Dog:
      type: object
      required: [kind]
      properties:
        kind: {type: string, enum: [dog]}
    Animal:
      oneOf:
        - $ref: '#/components/schemas/Cat'
        - $ref: '#/components/schemas/Dog'
      discriminator:
        propertyName: kind
    Bird:
      type: object
      properties:
        kind: {type: string, enum: [bird]}
    Fish:
      type: object
      required: [kind]
      properties:
        kind: {type: string, enum: [fish, shark]}
    Loose:
      oneOf:
        - $ref: '#/components/schemas/Cat'
        - $ref: '#/components/schemas/Bird'
      discriminator:
        propertyName: kind
    Ambiguous:
      oneOf:
        - $ref: '#/components/schemas/Cat'
        - $ref: '#/components/schemas/Fish'
      discriminator:
        propertyName: kind
    AnyAnimal:
      anyOf:
        - $ref: '#/components/schemas/Cat'
        - $ref: '#/components/schemas/Dog'
      discriminator:
        propertyName: kind
    Named:
      allOf:
        - $ref: '#/components/schemas/Pet'
      properties:
        nick: {type: string}
`

func loadDoc(t *testing.T, src string) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(src))
	require.NoError(t, err)
	return doc
}

func newSession(t *testing.T, opts Options) (*Session, *openapi3.T) {
	t.Helper()
	doc := loadDoc(t, petstore)
	return NewSession(resolver.New(doc), opts), doc
}

func refTo(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(resolver.ComponentsPrefix+name, nil)
}

func inline(s *openapi3.Schema) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("", s)
}

func TestCompile_Primitives(t *testing.T) {
	tests := []struct {
		name   string
		schema *openapi3.Schema
		zod    string
		ts     string
	}{
		{"string", openapi3.NewStringSchema(), "z.string()", "string"},
		{"number", openapi3.NewFloat64Schema(), "z.number()", "number"},
		{"integer", openapi3.NewIntegerSchema(), "z.number().int()", "number"},
		{"boolean", openapi3.NewBoolSchema(), "z.boolean()", "boolean"},
		{"null", &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeNull}}, "z.null()", "null"},
		{"untyped", &openapi3.Schema{}, "z.unknown()", "unknown"},
		{"binary", openapi3.NewStringSchema().WithFormat("binary"), "z.instanceof(File)", "File"},
		{"type tuple", &openapi3.Schema{Type: &openapi3.Types{"string", "null"}}, "z.union([z.string(), z.null()])", "string | null"},
		{"string enum", openapi3.NewStringSchema().WithEnum("a", "b"), `z.enum(["a", "b"])`, `"a" | "b"`},
		{"single enum", openapi3.NewStringSchema().WithEnum("a"), `z.literal("a")`, `"a"`},
		{"mixed enum", &openapi3.Schema{Enum: []any{float64(1), "a"}}, `z.union([z.literal(1), z.literal("a")])`, `1 | "a"`},
		{"array", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()), "z.array(z.string())", "Array<string>"},
		{"free form map", openapi3.NewObjectSchema().WithAnyAdditionalProperties(), "z.record(z.any())", "Record<string, any>"},
		{"typed map", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewIntegerSchema()), "z.record(z.number().int())", "Record<string, number>"},
		{"empty object", openapi3.NewObjectSchema(), "z.object({}).partial().passthrough()", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := CompileZod(nil, inline(tt.schema), Meta{Required: true})
			require.NoError(t, err)
			assert.Equal(t, tt.zod, m.String())

			ts, err := CompileType(nil, inline(tt.schema), "")
			require.NoError(t, err)
			assert.Equal(t, tt.ts, ts)
		})
	}
}

func TestCompile_Objects(t *testing.T) {
	t.Run("required list makes the other fields optional", func(t *testing.T) {
		s := openapi3.NewObjectSchema().
			WithProperty("id", openapi3.NewIntegerSchema()).
			WithProperty("name", openapi3.NewStringSchema())
		s.Required = []string{"name"}

		m, err := CompileZod(nil, inline(s), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.object({ id: z.number().int().optional(), name: z.string() }).passthrough()", m.String())

		ts, err := CompileType(nil, inline(s), "")
		require.NoError(t, err)
		assert.Equal(t, "{ id?: number; name: string }", ts)
	})

	t.Run("no required list makes the object partial", func(t *testing.T) {
		s := openapi3.NewObjectSchema().WithProperty("a", openapi3.NewStringSchema())

		m, err := CompileZod(nil, inline(s), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.object({ a: z.string() }).partial().passthrough()", m.String())

		ts, err := CompileType(nil, inline(s), "")
		require.NoError(t, err)
		assert.Equal(t, "Partial<{ a: string }>", ts)
	})

	t.Run("implicit required props", func(t *testing.T) {
		s := openapi3.NewObjectSchema().WithProperty("a", openapi3.NewStringSchema())
		sess := NewSession(resolver.New(nil), Options{WithImplicitRequiredProps: true})

		m, err := CompileZod(sess, inline(s), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.object({ a: z.string() }).passthrough()", m.String())

		ts, err := CompileType(sess, inline(s), "")
		require.NoError(t, err)
		assert.Equal(t, "{ a: string }", ts)
	})

	t.Run("closed object with catchall and odd keys", func(t *testing.T) {
		s := openapi3.NewObjectSchema().
			WithProperty("x-id", openapi3.NewStringSchema()).
			WithAdditionalProperties(openapi3.NewBoolSchema())
		s.Required = []string{"x-id"}

		m, err := CompileZod(nil, inline(s), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, `z.object({ "x-id": z.string() }).catchall(z.boolean())`, m.String())

		ts, err := CompileType(nil, inline(s), "")
		require.NoError(t, err)
		assert.Equal(t, `{ "x-id": string } & Record<string, boolean>`, ts)

		closed := openapi3.NewObjectSchema().WithProperty("a", openapi3.NewStringSchema())
		closed.Required = []string{"a"}
		closed.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)}
		m, err = CompileZod(nil, inline(closed), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.object({ a: z.string() })", m.String())
	})

	t.Run("nullable optional property", func(t *testing.T) {
		s := openapi3.NewObjectSchema().
			WithProperty("a", openapi3.NewStringSchema().WithNullable()).
			WithProperty("b", openapi3.NewStringSchema().WithNullable())
		s.Required = []string{"b"}

		m, err := CompileZod(nil, inline(s), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.object({ a: z.string().nullish(), b: z.string().nullable() }).passthrough()", m.String())

		ts, err := CompileType(nil, inline(s), "")
		require.NoError(t, err)
		assert.Equal(t, "{ a?: string | null; b: string | null }", ts)
	})

	t.Run("readonly", func(t *testing.T) {
		s := openapi3.NewObjectSchema().WithProperty("tags", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
		s.Required = []string{"tags"}
		sess := NewSession(resolver.New(nil), Options{AllReadonly: true})

		m, err := CompileZod(sess, inline(s), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.object({ tags: z.array(z.string()).readonly() }).passthrough().readonly()", m.String())

		ts, err := CompileType(sess, inline(s), "")
		require.NoError(t, err)
		assert.Equal(t, "Readonly<{ tags: ReadonlyArray<string> }>", ts)
	})
}

func TestCompile_Refinements(t *testing.T) {
	maxLen := uint64(10)
	str := openapi3.NewStringSchema()
	str.MinLength = 1
	str.MaxLength = &maxLen
	str.Pattern = "^a/b$"

	m, err := CompileZod(nil, inline(str), Meta{Required: true})
	require.NoError(t, err)
	assert.Equal(t, `z.string().min(1).max(10).regex(/^a\/b$/)`, m.String())

	exact := openapi3.NewStringSchema()
	exact.MinLength = 10
	exact.MaxLength = &maxLen
	m, err = CompileZod(nil, inline(exact), Meta{Required: true})
	require.NoError(t, err)
	assert.Equal(t, "z.string().length(10)", m.String())

	m, err = CompileZod(nil, inline(openapi3.NewDateTimeSchema()), Meta{Required: true})
	require.NoError(t, err)
	assert.Equal(t, "z.string().datetime({ offset: true })", m.String())

	num := openapi3.NewIntegerSchema().WithMin(0).WithMax(100).WithExclusiveMax(true)
	m, err = CompileZod(nil, inline(num), Meta{Required: true})
	require.NoError(t, err)
	assert.Equal(t, "z.number().int().gte(0).lt(100)", m.String())

	arr := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()).WithMinItems(1)
	m, err = CompileZod(nil, inline(arr), Meta{Required: true})
	require.NoError(t, err)
	assert.Equal(t, "z.array(z.string()).min(1)", m.String())

	withDefault := openapi3.NewStringSchema().WithDefault("x")
	sess := NewSession(resolver.New(nil), Options{WithDefaultValues: true})
	m, err = CompileZod(sess, inline(withDefault), Meta{Required: false})
	require.NoError(t, err)
	assert.Equal(t, `z.string().optional().default("x")`, m.String())

	enum := openapi3.NewStringSchema().WithEnum("a", "b").WithMinLength(5)
	m, err = CompileZod(nil, inline(enum), Meta{Required: true})
	require.NoError(t, err)
	assert.Equal(t, `z.enum(["a", "b"])`, m.String())
}

func TestCompile_Composition(t *testing.T) {
	t.Run("unions", func(t *testing.T) {
		oneOf := &openapi3.Schema{OneOf: openapi3.SchemaRefs{inline(openapi3.NewStringSchema()), inline(openapi3.NewIntegerSchema())}}
		m, err := CompileZod(nil, inline(oneOf), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.union([z.string(), z.number().int()])", m.String())
		ts, err := CompileType(nil, inline(oneOf), "")
		require.NoError(t, err)
		assert.Equal(t, "string | number", ts)

		anyOf := &openapi3.Schema{AnyOf: oneOf.OneOf, Nullable: true}
		m, err = CompileZod(nil, inline(anyOf), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.union([z.string(), z.number().int()]).nullable()", m.String())
		ts, err = CompileType(nil, inline(anyOf), "")
		require.NoError(t, err)
		assert.Equal(t, "string | number | Array<string | number> | null", ts)

		single := &openapi3.Schema{OneOf: openapi3.SchemaRefs{inline(openapi3.NewStringSchema())}}
		m, err = CompileZod(nil, inline(single), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.string()", m.String())
	})

	discriminated := []struct {
		name   string
		schema string
		zod    string
		ts     string
	}{
		{"tagged branches", "Animal", `z.discriminatedUnion("kind", [Cat, Dog])`, "type Animal = Cat | Dog;"},
		{"branch without required tag", "Loose", "z.union([Cat, Bird])", "type Loose = Cat | Bird;"},
		{"branch with several tag values", "Ambiguous", "z.union([Cat, Fish])", "type Ambiguous = Cat | Fish;"},
		{"anyOf keeps array expansion", "AnyAnimal", `z.discriminatedUnion("kind", [Cat, Dog])`, "type AnyAnimal = Cat | Dog | Array<Cat | Dog>;"},
	}
	for _, tt := range discriminated {
		t.Run("discriminator "+tt.name, func(t *testing.T) {
			s, doc := newSession(t, Options{ComplexityThreshold: DefaultComplexityThreshold})
			m, err := CompileZod(s, inline(doc.Components.Schemas[tt.schema].Value), Meta{Required: true})
			require.NoError(t, err)
			assert.Equal(t, tt.zod, m.String())
			assert.Equal(t, `z.object({ kind: z.literal("cat") }).passthrough()`, s.CodeByName["Cat"])

			ts, err := CompileType(s, doc.Components.Schemas[tt.schema], tt.schema)
			require.NoError(t, err)
			assert.Equal(t, tt.ts, ts)
		})
	}

	t.Run("allOf with own properties", func(t *testing.T) {
		s, doc := newSession(t, Options{ComplexityThreshold: DefaultComplexityThreshold})
		named := doc.Components.Schemas["Named"]
		m, err := CompileZod(s, inline(named.Value), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "Pet.and(z.object({ nick: z.string() }).partial().passthrough())", m.String())

		ts, err := CompileType(s, inline(named.Value), "")
		require.NoError(t, err)
		assert.Equal(t, "Pet & Partial<{ nick: string }>", ts)
	})
}

func TestCompile_References(t *testing.T) {
	t.Run("registers the target and returns its name", func(t *testing.T) {
		s, _ := newSession(t, Options{ComplexityThreshold: DefaultComplexityThreshold})
		m, err := CompileZod(s, refTo("Pet"), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "Pet", m.String())
		assert.Equal(t, "z.object({ id: z.number().int().optional(), name: z.string() }).passthrough()", s.CodeByName["Pet"])
		assert.Equal(t, []string{"Pet"}, s.SchemaNames())

		again, err := CompileZod(s, refTo("Pet"), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "Pet", again.String())
		assert.Len(t, s.Meta("Pet").ReferencedBy, 2)
		assert.Equal(t, []string{"Pet"}, s.SchemaNames())
	})

	t.Run("cycles terminate and reference by name", func(t *testing.T) {
		s, doc := newSession(t, Options{ComplexityThreshold: DefaultComplexityThreshold})
		_, err := CompileZod(s, refTo("User"), Meta{Required: true})
		require.NoError(t, err)
		assert.Equal(t, "z.object({ middle: Middle, name: z.string() }).partial().passthrough()", s.CodeByName["User"])
		assert.Equal(t, "z.object({ user: User }).partial().passthrough()", s.CodeByName["Middle"])

		ts, err := CompileType(s, doc.Components.Schemas["User"], "User")
		require.NoError(t, err)
		assert.Equal(t, "type User = Partial<{ middle: Middle; name: string }>;", ts)
		assert.Equal(t, "Partial<{ user: User }>", s.TypeByName["Middle"])
	})

	t.Run("missing target", func(t *testing.T) {
		s, _ := newSession(t, Options{})
		obj := openapi3.NewObjectSchema().WithPropertyRef("owner", refTo("Missing"))

		_, err := CompileZod(s, inline(obj), Meta{Required: true})
		require.Error(t, err)
		var notFound *SchemaNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "#/components/schemas/Missing", notFound.Ref)
		assert.ErrorIs(t, err, resolver.ErrSchemaNotFound)

		_, err = CompileType(s, inline(obj), "")
		assert.ErrorIs(t, err, resolver.ErrSchemaNotFound)
	})

	t.Run("refs need a session", func(t *testing.T) {
		_, err := CompileZod(nil, refTo("Pet"), Meta{Required: true})
		assert.ErrorIs(t, err, ErrMissingContext)
		_, err = CompileType(nil, refTo("Pet"), "")
		assert.ErrorIs(t, err, ErrMissingContext)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := CompileZod(nil, inline(&openapi3.Schema{Type: &openapi3.Types{"file"}}), Meta{Required: true})
		assert.ErrorIs(t, err, ErrUnsupportedSchemaType)
	})
}
