package formater

import (
	"context"
	"fmt"

	"github.com/coze-dev/openapi-zod-gen/consts"
	"github.com/coze-dev/openapi-zod-gen/formater/prettier"
)

func Format(ctx context.Context, target string, path string) error {
	switch target {
	case consts.Zod:
		return prettier.Format(ctx, path)
	default:
		return fmt.Errorf("unsupported target %q", target)
	}
}
