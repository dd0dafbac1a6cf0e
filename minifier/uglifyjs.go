package minifier

import (
	"context"

	"go.uber.org/zap"
)

// DefaultUglifyjsArgs keep comments that look like license headers.
var DefaultUglifyjsArgs = []string{"--mangle", "--compress", "--comments", "/^!|@license|@preserve/"}

// Uglifyjs runs the uglifyjs executable.
type Uglifyjs struct {
	// Binary defaults to "uglifyjs" looked up in PATH.
	Binary string
	// Args default to DefaultUglifyjsArgs.
	Args   []string
	Logger *zap.Logger
}

func (u *Uglifyjs) command(file string) []string {
	bin := u.Binary
	if bin == "" {
		bin = "uglifyjs"
	}
	args := u.Args
	if args == nil {
		args = DefaultUglifyjsArgs
	}
	cmd := append([]string{bin}, args...)
	if file != "" {
		cmd = append(cmd, file)
	}
	return cmd
}

func (u *Uglifyjs) MinifyString(ctx context.Context, js string) (string, error) {
	out, err := runProcess(ctx, u.Logger, "uglifyjs", u.command(""), []byte(js))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (u *Uglifyjs) MinifyFile(ctx context.Context, file string) (string, error) {
	out, err := runProcess(ctx, u.Logger, "uglifyjs", u.command(file), nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
