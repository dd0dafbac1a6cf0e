package minifier

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrMissingJar is returned when a YuiCompressor has no jar configured.
var ErrMissingJar = errors.New("yuicompressor: path to jar file required")

// YuiCompressor runs the yuicompressor jar with java.
type YuiCompressor struct {
	Jar string
	// Java defaults to "java" looked up in PATH.
	Java   string
	Logger *zap.Logger
}

func (y *YuiCompressor) command(file string) ([]string, error) {
	if y.Jar == "" {
		return nil, ErrMissingJar
	}
	java := y.Java
	if java == "" {
		java = "java"
	}
	cmd := []string{java, "-jar", y.Jar, "--type", "js", "--charset", "UTF-8", "-v"}
	if file != "" {
		cmd = append(cmd, file)
	}
	return cmd, nil
}

func (y *YuiCompressor) MinifyString(ctx context.Context, js string) (string, error) {
	// yui crashes on empty input
	if js == "" {
		return "", nil
	}
	cmd, err := y.command("")
	if err != nil {
		return "", err
	}
	out, err := runProcess(ctx, y.Logger, "yui", cmd, []byte(js))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (y *YuiCompressor) MinifyFile(ctx context.Context, file string) (string, error) {
	cmd, err := y.command(file)
	if err != nil {
		return "", err
	}
	out, err := runProcess(ctx, y.Logger, "yui", cmd, nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
