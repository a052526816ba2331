package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	require.NoError(t, err, out.String())
	return out.String()
}

func TestMaterials(t *testing.T) {
	out := run(t, "materials")
	for _, name := range []string{"standard_rock", "dry_air", "iron", "vacuum"} {
		assert.Contains(t, out, name)
	}
}

func TestSimulate(t *testing.T) {
	dir := t.TempDir()
	oname := filepath.Join(dir, "muons.out")
	cfg := filepath.Join(dir, "cfg.yaml")
	err := os.WriteFile(cfg, []byte("generator: {min_momentum: 1, max_momentum: 20}\n"), 0644)
	require.NoError(t, err)

	out := run(t, "-c", cfg, "--nevts", "3", "--nprocs", "2", "-o", oname)
	assert.True(t, strings.HasPrefix(out, "events=3 "), out)

	out = run(t, "dump", oname)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "event"))
}

func TestSimulateInvalid(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--nprocs", "0", "-o", filepath.Join(t.TempDir(), "out")})
	assert.Error(t, cmd.Execute())
}
