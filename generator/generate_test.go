package generator

import (
	"context"
	"testing"

	"github.com/coze-dev/openapi-zod-gen/consts"
	"github.com/coze-dev/openapi-zod-gen/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
openapi: 3.0.0
info: {title: shop, version: "1"}
paths:
  /pet:
    get:
      tags: [pet]
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {$ref: '#/components/schemas/Pet'}
  /order:
    get:
      tags: [store]
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items: {$ref: '#/components/schemas/Pet'}
components:
  schemas:
    Pet:
      type: object
      properties:
        id: {type: integer}
        name: {type: string}
`

func TestGenerate(t *testing.T) {
	opts := parser.DefaultOptions()
	opts.GroupStrategy = parser.GroupTagFile

	tests := []struct {
		name  string
		group string
		want  []string
	}{
		{name: "all groups", want: []string{"common.ts", "pet.ts", "store.ts"}},
		{name: "one group keeps common", group: "store", want: []string{"common.ts", "store.ts"}},
		{name: "unknown group", group: "user", want: []string{"common.ts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := Generate(context.Background(), consts.Zod, []byte(doc), opts, tt.group)
			require.NoError(t, err)

			var names []string
			for name := range files {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(context.Background(), "python", []byte(doc), parser.DefaultOptions(), "")
	assert.ErrorContains(t, err, "unsupported target")

	_, err = Generate(context.Background(), consts.Zod, []byte("openapi: ["), parser.DefaultOptions(), "")
	assert.Error(t, err)

	opts := parser.DefaultOptions()
	opts.GroupStrategy = "by-size"
	_, err = Generate(context.Background(), consts.Zod, []byte(doc), opts, "")
	assert.ErrorIs(t, err, parser.ErrInvalidGroupStrategy)
}
