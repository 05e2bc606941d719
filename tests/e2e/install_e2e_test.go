package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"choco-cli/tests/testutil"
)

func TestInstallCommandE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e in short mode")
	}
	root := testutil.RepoRoot(t)
	installRoot := filepath.Join(t.TempDir(), "choco")
	feed := filepath.Join(t.TempDir(), "feed")
	testutil.WritePackage(t, feed, testutil.TestPackage{
		ID:      "hello",
		Version: "1.0.0",
		Files: map[string]string{
			"tools/chocolateyInstall.sh": "echo hello > hello.txt\n",
		},
	})

	cmd := exec.Command("go", "run", "./cmd/choco", "install", "hello",
		"--source", feed,
		"--install-root", installRoot,
		"-y",
	)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	require.Contains(t, string(out), "Chocolatey installed 1/1 packages.")

	require.FileExists(t, filepath.Join(installRoot, "lib", "hello", "hello.nupkg"))
	require.FileExists(t, filepath.Join(installRoot, "lib", "hello", "tools", "hello.txt"))
	require.FileExists(t, filepath.Join(installRoot, ".chocolatey", "hello", "info.yaml"))
}
