package commands

import (
	"bytes"
	"context"
	"testing"

	"KeePassLookup/internal/config"
	"KeePassLookup/internal/keepass/keepasstest"
)

// fakeCmd позволяет управлять возвратом ошибок из Run
type fakeCmd struct {
	name, usage, desc string
	run               func(ctx context.Context, cfg *config.Config, args []string) error
}

func (f fakeCmd) Name() string        { return f.name }
func (f fakeCmd) Description() string { return f.desc }
func (f fakeCmd) Usage() string       { return f.usage }
func (f fakeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	return f.run(ctx, cfg, args)
}

// перехват stdout на время теста
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	out, _ := withOutputCapture(t, fn)
	return out
}

// перехват stdout и stderr
func withOutputCapture(t *testing.T, fn func()) (string, string) {
	t.Helper()
	oldOut, oldErr := Out, ErrOut
	var out, errOut bytes.Buffer
	Out, ErrOut = &out, &errOut
	defer func() { Out, ErrOut = oldOut, oldErr }()
	fn()
	return out.String(), errOut.String()
}

// withSampleDatabase пишет тестовую базу во временный каталог и возвращает конфиг для неё.
func withSampleDatabase(t *testing.T) *config.Config {
	t.Helper()
	path := keepasstest.WriteFile(t, keepasstest.SampleTree(), keepasstest.SamplePassword, keepasstest.Options{Compress: true})
	return &config.Config{DatabasePath: path, MasterPassword: keepasstest.SamplePassword}
}
