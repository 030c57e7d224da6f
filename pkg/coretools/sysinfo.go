package coretools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/harun/redclaw/pkg/tools"
)

func sysInfoTool(opts Options) *tools.Definition {
	return &tools.Definition{
		ToolName: "get_sys_info",
		Summary:  "Get real-time system and process memory info (RSS)",
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return sysInfo(opts.procRoot), nil
		},
	}
}

// sysInfo reports process memory from procRoot (normally /proc). Hosts
// without procfs get the Go runtime figures only.
func sysInfo(procRoot string) string {
	var b strings.Builder
	b.WriteString("RedClaw Process Info:\n")

	if rss, ok := readRSS(procRoot); ok {
		fmt.Fprintf(&b, "- Real RAM Usage (RSS): %d KB\n", rss)

		if status, err := os.ReadFile(filepath.Join(procRoot, "self", "status")); err == nil {
			for _, line := range strings.Split(string(status), "\n") {
				if strings.HasPrefix(line, "VmPeak") || strings.HasPrefix(line, "Threads") {
					key, value, _ := strings.Cut(line, ":")
					fmt.Fprintf(&b, "- %s: %s\n", key, strings.TrimSpace(value))
				}
			}
		}

		if fds, err := os.ReadDir(filepath.Join(procRoot, "self", "fd")); err == nil {
			fmt.Fprintf(&b, "- Open FDs: %d\n", len(fds))
		}

		if meminfo, err := os.ReadFile(filepath.Join(procRoot, "meminfo")); err == nil {
			for _, line := range strings.Split(string(meminfo), "\n") {
				if strings.HasPrefix(line, "MemAvailable") {
					fmt.Fprintf(&b, "- System Info: %s\n", line)
					break
				}
			}
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	fmt.Fprintf(&b, "- Go Heap In Use: %d KB\n", ms.HeapInuse/1024)
	fmt.Fprintf(&b, "- Go Runtime Sys: %d KB\n", ms.Sys/1024)
	fmt.Fprintf(&b, "- Goroutines: %d\n", runtime.NumGoroutine())

	return b.String()
}

// readRSS returns the resident set size in KB from <procRoot>/self/statm.
func readRSS(procRoot string) (int64, bool) {
	data, err := os.ReadFile(filepath.Join(procRoot, "self", "statm"))
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, false
	}
	pages, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return pages * int64(os.Getpagesize()) / 1024, true
}

// ResidentKB returns the current process RSS in KB, or false when procfs
// is unavailable.
func ResidentKB() (int64, bool) {
	return readRSS("/proc")
}
