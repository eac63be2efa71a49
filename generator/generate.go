package generator

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/coze-dev/openapi-zod-gen/consts"
	"github.com/coze-dev/openapi-zod-gen/generator/zod"
	"github.com/coze-dev/openapi-zod-gen/parser"
)

// Generate compiles an OpenAPI document and renders it for target. When group
// is set only that group's file is kept.
func Generate(ctx context.Context, target string, content []byte, opts parser.Options, group string) (map[string]string, error) {
	var files map[string]string

	switch target {
	case consts.Zod:
		tc, err := parser.NewParser(opts).ParseOpenAPI(content)
		if err != nil {
			return nil, err
		}
		generator := zod.Generator{}
		files, err = generator.Generate(ctx, tc)
		if err != nil {
			return nil, fmt.Errorf("failed to generate zod client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported target %q", target)
	}

	// Filter files by group if specified
	if group != "" {
		filteredFiles := make(map[string]string)
		for name, content := range files {
			base := strings.TrimSuffix(name, path.Ext(name))
			if base == group || base == consts.CommonFile {
				filteredFiles[name] = content
			}
		}
		files = filteredFiles
	}

	return files, nil
}
