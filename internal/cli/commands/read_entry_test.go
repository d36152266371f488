package commands

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KeePassLookup/internal/cli/model/view"
	"KeePassLookup/internal/cli/service"
	"KeePassLookup/internal/config"
	"KeePassLookup/internal/keepass/keepasstest"
)

func TestReadEntry_DefaultOutput(t *testing.T) {
	cfg := withSampleDatabase(t)
	var err error
	out := withStdoutCapture(t, func() {
		err = (readEntryCmd{}).Run(context.Background(), cfg, []string{"-uuid", strings.ToLower(keepasstest.SampleEntry2UUID)})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "title:     Sample Entry #2\n")
	assert.Contains(t, out, "username:  Michael321\n")
	assert.Contains(t, out, "password:  12345\n")
	assert.Contains(t, out, "uuid:      "+keepasstest.SampleEntry2UUID+"\n")
}

func TestReadEntry_FieldAndJSON(t *testing.T) {
	cfg := withSampleDatabase(t)
	ctx := context.Background()

	var err error
	out := withStdoutCapture(t, func() {
		err = (readEntryCmd{}).Run(ctx, cfg, []string{"-path", "One", "-title", "One-Entry", "-field", "password"})
	})
	require.NoError(t, err)
	assert.Equal(t, "one-pass\n", out)

	out = withStdoutCapture(t, func() {
		err = (readEntryCmd{}).Run(ctx, cfg, []string{"-group", "One", "-group", "Two", "-title", "Two-Entry", "-json"})
	})
	require.NoError(t, err)
	var got view.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, keepasstest.TwoEntryUUID, got.UUID)
	assert.Equal(t, "two", got.Username)
	assert.Equal(t, "https://two.example.org/", got.URL)
}

func TestReadEntry_UsageErrors(t *testing.T) {
	cases := [][]string{
		{"-group", "One", "-path", "One/Two"},
		{"-field", "secret"},
		{"-field", "password", "-json"},
		{"positional"},
		{"-no-such-flag"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			// конфиг пустой: ошибка должна возникнуть до чтения файла
			err := (readEntryCmd{}).Run(context.Background(), &config.Config{}, args)
			assert.True(t, errors.Is(err, ErrUsage), "got %v", err)
		})
	}
}

func TestReadEntry_ExitCodes(t *testing.T) {
	cfg := withSampleDatabase(t)
	wrong := *cfg
	wrong.MasterPassword = "wrong"
	missing := *cfg
	missing.DatabasePath = filepath.Join(t.TempDir(), "missing.kdbx")

	cases := []struct {
		name string
		cfg  *config.Config
		args []string
		want int
	}{
		{name: "found", cfg: cfg, args: []string{"-path", "One/Two/Three"}, want: ExitOK},
		{name: "group not found", cfg: cfg, args: []string{"-path", "One/Nope"}, want: ExitGroupNotFound},
		{name: "entry not found", cfg: cfg, args: []string{"-title", "Old Sample"}, want: ExitEntryNotFound},
		{name: "bad uuid", cfg: cfg, args: []string{"-uuid", "xyz"}, want: ExitUsage},
		{name: "no path", cfg: &config.Config{}, args: nil, want: ExitUsage},
		{name: "wrong password", cfg: &wrong, args: nil, want: ExitInvalidCredentials},
		{name: "missing file", cfg: &missing, args: nil, want: ExitInvalidFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var code int
			_, errOut := withOutputCapture(t, func() {
				code = Dispatch(context.Background(), tc.cfg, append([]string{"read-entry"}, tc.args...))
			})
			assert.Equal(t, tc.want, code, errOut)
			assert.NotContains(t, errOut, keepasstest.SamplePassword)
		})
	}
}

func TestReadEntry_PromptPassword(t *testing.T) {
	cfg := withSampleDatabase(t)
	cfg.MasterPassword = ""
	cfg.PromptPassword = true

	old := readPassword
	defer func() { readPassword = old }()
	calls := 0
	readPassword = func() (string, error) {
		calls++
		return keepasstest.SamplePassword, nil
	}

	var err error
	out := withStdoutCapture(t, func() {
		err = (readEntryCmd{}).Run(context.Background(), cfg, []string{"-path", "One/Two/Three", "-uuid", keepasstest.ThreeEntryUUID, "-field", "username"})
	})
	require.NoError(t, err)
	assert.Equal(t, "three\n", out)
	assert.Equal(t, 1, calls)

	readPassword = func() (string, error) { return "", errors.New("no tty") }
	err = (readEntryCmd{}).Run(context.Background(), cfg, nil)
	assert.EqualError(t, err, "no tty")
}

func TestReadEntry_PasswordFromConfigSkipsPrompt(t *testing.T) {
	cfg := withSampleDatabase(t)
	cfg.PromptPassword = true

	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func() (string, error) {
		t.Fatalf("prompt must not be used when the password is configured")
		return "", nil
	}
	err := (readEntryCmd{}).Run(context.Background(), cfg, []string{"-title", "Shadow"})
	// Shadow-Entry лежит во второй группе One, а без иерархии ищем только в корне
	assert.Equal(t, ExitEntryNotFound, ExitCode(err))
}

// без пути к базе команда не спрашивает пароль и не создаёт файл журнала
func TestCommands_MissingPathFailsBeforeAnyIO(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func() (string, error) {
		t.Fatalf("prompt must not be used without a database path")
		return "", nil
	}

	audit := filepath.Join(t.TempDir(), "audit.sqlite")
	cfg := &config.Config{DatabasePath: "  ", PromptPassword: true, AuditDSN: audit}
	for _, cmd := range []Command{readEntryCmd{}, dbInfoCmd{}} {
		err := cmd.Run(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, service.ErrInvalidArgument, cmd.Name())
		assert.Equal(t, ExitUsage, ExitCode(err), cmd.Name())
	}
	_, err := os.Stat(audit)
	assert.True(t, errors.Is(err, os.ErrNotExist), "journal file must not be created, stat: %v", err)
}
