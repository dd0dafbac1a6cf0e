package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yRedskull/jsrender/minifier"
	"go.uber.org/zap"
)

func newMinifyCmd(a *app) *cobra.Command {
	var (
		backend string
		opts    map[string]string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "minify [file...]",
		Short: "Minify javascript files, or stdin if no file is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := minifier.New(backend, opts, a.log.Named("minifier"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return runMinify(cmd.Context(), b, args, cmd.InOrStdin(), out, a.log)
		},
	}
	cmd.Flags().StringVarP(&backend, "minifier", "m", "uglifyjs", "backend: slimit, jsmin, uglifyjs, yuicompressor or esbuild")
	cmd.Flags().StringToStringVar(&opts, "option", nil, "backend option as key=value, e.g. jar=/opt/yuicompressor.jar")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func runMinify(ctx context.Context, b minifier.Backend, files []string, in io.Reader, out io.Writer, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(files) == 0 {
		src, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		js, err := b.MinifyString(ctx, string(src))
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, js)
		return err
	}
	for i, file := range files {
		js, err := b.MinifyFile(ctx, file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if i > 0 {
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(out, js); err != nil {
			return err
		}
		log.Debug("minified", zap.String("file", file), zap.Int("bytes", len(js)))
	}
	return nil
}
