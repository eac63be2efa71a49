package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/coze-dev/openapi-zod-gen/consts"
	"github.com/coze-dev/openapi-zod-gen/formater"
	"github.com/coze-dev/openapi-zod-gen/generator"
	"github.com/coze-dev/openapi-zod-gen/parser"
	"github.com/coze-dev/openapi-zod-gen/writer"
	"github.com/spf13/cobra"
)

var (
	target              string
	outputPath          string
	group               string
	configPath          string
	baseURL             string
	apiClientName       string
	groupStrategy       string
	defaultStatus       string
	complexityThreshold int
	withAlias           bool
	exportSchemas       bool
	exportTypes         bool
	implicitRequired    bool
	withDeprecated      bool
	allReadonly         bool
	noDefaultValues     bool
	skipFormat          bool
	verbose             bool
)

func init() {
	rootCmd.Flags().StringVarP(&target, "target", "t", consts.Zod, "Output target")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory path for the generated client")
	rootCmd.Flags().StringVarP(&group, "group", "g", "", "Specific group file to generate")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML options file")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of the generated client")
	rootCmd.Flags().StringVar(&apiClientName, "api-client-name", "", "Name of the exported client")
	rootCmd.Flags().StringVar(&groupStrategy, "group-strategy", "", "none, tag, method, tag-file or method-file")
	rootCmd.Flags().StringVar(&defaultStatus, "default-status", "", "spec-compliant or auto-correct")
	rootCmd.Flags().IntVar(&complexityThreshold, "complexity-threshold", 0, "Complexity from which schemas are hoisted, -1 inlines everything")
	rootCmd.Flags().BoolVar(&withAlias, "with-alias", false, "Emit endpoint aliases")
	rootCmd.Flags().BoolVar(&exportSchemas, "export-schemas", false, "Emit every component schema")
	rootCmd.Flags().BoolVar(&exportTypes, "export-types", false, "Emit a TypeScript type for every schema")
	rootCmd.Flags().BoolVar(&implicitRequired, "implicit-required", false, "Treat properties as required when no required list is given")
	rootCmd.Flags().BoolVar(&withDeprecated, "with-deprecated", false, "Keep deprecated endpoints")
	rootCmd.Flags().BoolVar(&allReadonly, "all-readonly", false, "Make objects and arrays readonly")
	rootCmd.Flags().BoolVar(&noDefaultValues, "no-default-values", false, "Do not emit .default() values")
	rootCmd.Flags().BoolVar(&skipFormat, "skip-format", false, "Do not run prettier on the output")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	// Mark flags as required
	rootCmd.MarkFlagRequired("output")

	rootCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if target != consts.Zod {
			return fmt.Errorf("unsupported target %q (currently only supports '%s')", target, consts.Zod)
		}
		return nil
	}
}

// loadOptions reads the options file, then applies the flags that were set.
func loadOptions(cmd *cobra.Command) (parser.Options, error) {
	opts := parser.DefaultOptions()
	if configPath != "" {
		var err error
		if opts, err = parser.LoadOptions(configPath); err != nil {
			return opts, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		opts.BaseURL = baseURL
	}
	if flags.Changed("api-client-name") {
		opts.APIClientName = apiClientName
	}
	if flags.Changed("group-strategy") {
		opts.GroupStrategy = parser.GroupStrategy(groupStrategy)
	}
	if flags.Changed("default-status") {
		opts.DefaultStatusBehavior = parser.DefaultStatusBehavior(defaultStatus)
	}
	if flags.Changed("complexity-threshold") {
		opts.ComplexityThreshold = complexityThreshold
	}
	if flags.Changed("with-alias") {
		opts.WithAlias = withAlias
	}
	if flags.Changed("export-schemas") {
		opts.ShouldExportAllSchemas = exportSchemas
	}
	if flags.Changed("export-types") {
		opts.ShouldExportAllTypes = exportTypes
	}
	if flags.Changed("implicit-required") {
		opts.WithImplicitRequiredProps = implicitRequired
	}
	if flags.Changed("with-deprecated") {
		opts.WithDeprecatedEndpoints = withDeprecated
	}
	if flags.Changed("all-readonly") {
		opts.AllReadonly = allReadonly
	}
	if flags.Changed("no-default-values") {
		opts.WithDefaultValues = !noDefaultValues
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(opts.Logger)
	return opts, nil
}

var rootCmd = &cobra.Command{
	Use:   "openapi-zod-gen <openapi.yaml>",
	Short: "Generate a Zod client from an OpenAPI specification",
	Long: `A generator tool that turns an OpenAPI 3.x document into Zod schemas,
TypeScript types for recursive schemas and a Zodios client.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}

		// Read the document
		docPath := args[0]
		content, err := os.ReadFile(docPath)
		if err != nil {
			return fmt.Errorf("failed to read OpenAPI file: %w", err)
		}

		ctx := context.Background()
		files, err := generator.Generate(ctx, target, content, opts, group)
		if err != nil {
			return err
		}

		// Create directory and files
		if err = writer.WriteOutput(ctx, files, outputPath); err != nil {
			return err
		}

		if skipFormat {
			return nil
		}
		// Run format on the generated files
		return formater.Format(ctx, target, outputPath)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
