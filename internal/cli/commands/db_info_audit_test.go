package commands

import (
	"context"
	"encoding/json"
	"errors"
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

func TestDBInfo_Run(t *testing.T) {
	cfg := withSampleDatabase(t)

	var err error
	out := withStdoutCapture(t, func() { err = (dbInfoCmd{}).Run(context.Background(), cfg, nil) })
	require.NoError(t, err)
	assert.Contains(t, out, "version:    4.0\n")
	assert.Contains(t, out, "generator:  keepasstest\n")
	assert.Contains(t, out, "root:       IntegrationTestDatabase\n")
	assert.Contains(t, out, "groups:     4\n")
	assert.Contains(t, out, "entries:    7\n")
	assert.NotContains(t, out, "one-pass")

	out = withStdoutCapture(t, func() { err = (dbInfoCmd{}).Run(context.Background(), cfg, []string{"-json"}) })
	require.NoError(t, err)
	var info view.DatabaseInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, cfg.DatabasePath, info.Path)
	assert.Equal(t, 7, info.Entries)

	assert.ErrorIs(t, (dbInfoCmd{}).Run(context.Background(), cfg, []string{"extra"}), ErrUsage)
}

func TestAudit_NotConfigured(t *testing.T) {
	err := (auditCmd{}).Run(context.Background(), &config.Config{}, nil)
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
	assert.Equal(t, ExitUsage, ExitCode(err))

	assert.True(t, errors.Is((auditCmd{}).Run(context.Background(), &config.Config{}, []string{"-n", "0"}), ErrUsage))
}

func TestAudit_ListsLookups(t *testing.T) {
	cfg := withSampleDatabase(t)
	cfg.AuditDSN = filepath.Join(t.TempDir(), "audit.sqlite")
	ctx := context.Background()

	out := withStdoutCapture(t, func() {
		require.NoError(t, (auditCmd{}).Run(ctx, cfg, nil))
	})
	assert.Equal(t, "No lookups recorded\n", out)

	withOutputCapture(t, func() {
		require.Equal(t, ExitOK, Dispatch(ctx, cfg, []string{"read-entry", "-path", "One", "-title", "One-Entry"}))
		require.Equal(t, ExitGroupNotFound, Dispatch(ctx, cfg, []string{"read-entry", "-path", "Nope"}))
	})

	out = withStdoutCapture(t, func() {
		require.NoError(t, (auditCmd{}).Run(ctx, cfg, []string{"-n", "10"}))
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, out, "ok "+keepasstest.OneEntryUUID)
	assert.Contains(t, out, "GroupNotFound")
	// журнал не хранит секреты
	assert.NotContains(t, out, "one-pass")
	assert.NotContains(t, out, keepasstest.SamplePassword)

	out = withStdoutCapture(t, func() {
		require.NoError(t, (auditCmd{}).Run(ctx, cfg, []string{"-n", "1"}))
	})
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}
