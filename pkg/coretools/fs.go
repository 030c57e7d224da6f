package coretools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/redclaw/pkg/tools"
)

const (
	readLimit       = 256 * 1024
	readTruncNotice = "\n... (truncated: file exceeds 256KB safety limit)"
)

func readFileTool(opts Options) *tools.Definition {
	return &tools.Definition{
		ToolName: "read_file",
		Summary:  "Read the contents of a file (limit 256KB for safety)",
		Params: []tools.Parameter{
			{Name: "path", Type: "string", Description: "Path to the file to read", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			target := resolvePath(opts.Workspace, stringArg(args, "path"))

			data, truncated, err := readFileWithLimit(target, readLimit)
			if err != nil {
				return "", err
			}

			content := strings.ToValidUTF8(string(data), "�")
			if truncated {
				content += readTruncNotice
			}
			return content, nil
		},
	}
}

func readFileWithLimit(path string, limit int64) ([]byte, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, false, err
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("%s is a directory", path)
	}

	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return nil, false, err
	}
	return data, info.Size() > limit, nil
}

func writeFileTool(opts Options) *tools.Definition {
	return &tools.Definition{
		ToolName: "write_file",
		Summary:  "Write content to a file",
		Params: []tools.Parameter{
			{Name: "path", Type: "string", Description: "Path to the file to write", Required: true},
			{Name: "content", Type: "string", Description: "Content to write to the file", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			target := resolvePath(opts.Workspace, stringArg(args, "path"))
			content := stringArg(args, "content")

			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return "", err
			}
			if err := os.WriteFile(target, []byte(content), 0644); err != nil {
				return "", err
			}
			return "File written successfully", nil
		},
	}
}

func listDirTool(opts Options) *tools.Definition {
	return &tools.Definition{
		ToolName: "list_dir",
		Summary:  "List files and directories in a path",
		Params: []tools.Parameter{
			{Name: "path", Type: "string", Description: "Path to list", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			target := resolvePath(opts.Workspace, stringArg(args, "path"))

			entries, err := os.ReadDir(target)
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return "(empty directory)", nil
			}

			// os.ReadDir returns entries sorted by name.
			var b strings.Builder
			for _, e := range entries {
				if e.IsDir() {
					b.WriteString("DIR:  ")
				} else {
					b.WriteString("FILE: ")
				}
				b.WriteString(e.Name())
				b.WriteByte('\n')
			}
			return b.String(), nil
		},
	}
}
