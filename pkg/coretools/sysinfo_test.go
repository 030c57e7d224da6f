package coretools

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProc(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	self := filepath.Join(root, "self")
	require.NoError(t, os.MkdirAll(filepath.Join(self, "fd"), 0755))

	require.NoError(t, os.WriteFile(filepath.Join(self, "statm"), []byte("1000 250 100 1 0 200 0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(self, "status"),
		[]byte("Name:\tredclaw\nVmPeak:\t  12345 kB\nVmRSS:\t 1000 kB\nThreads:\t7\n"), 0644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(self, "fd", fmt.Sprint(i)), nil, 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "meminfo"),
		[]byte("MemTotal:  8000000 kB\nMemAvailable:  4000000 kB\n"), 0644))
	return root
}

func TestSysInfo(t *testing.T) {
	t.Run("should report procfs figures", func(t *testing.T) {
		opts := testOptions(t)
		opts.procRoot = fakeProc(t)

		out, err := run(t, sysInfoTool(opts), map[string]interface{}{})
		require.NoError(t, err)

		rss := 250 * int64(os.Getpagesize()) / 1024
		assert.Contains(t, out, "RedClaw Process Info:\n")
		assert.Contains(t, out, fmt.Sprintf("- Real RAM Usage (RSS): %d KB\n", rss))
		assert.Contains(t, out, "- VmPeak: 12345 kB\n")
		assert.Contains(t, out, "- Threads: 7\n")
		assert.Contains(t, out, "- Open FDs: 3\n")
		assert.Contains(t, out, "- System Info: MemAvailable:  4000000 kB\n")
		assert.NotContains(t, out, "VmRSS")
	})

	t.Run("should fall back to runtime figures without procfs", func(t *testing.T) {
		out := sysInfo(filepath.Join(t.TempDir(), "missing"))
		assert.Contains(t, out, "RedClaw Process Info:\n")
		assert.NotContains(t, out, "RSS")
		assert.Contains(t, out, "- Goroutines: ")
	})
}
