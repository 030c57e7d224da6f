// Package coretools provides the built-in tools offered to the model:
// file access, shell execution, web search and fetch, and process info.
package coretools

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/redclaw/pkg/tools"
)

const (
	DefaultExecTimeout = 60 * time.Second
	DefaultMaxResults  = 5
)

// Options configures the built-in tools.
type Options struct {
	// Workspace is the exec working directory and the base for relative
	// file paths.
	Workspace   string
	ExecTimeout time.Duration

	SearchAPIKey     string
	SearchMaxResults int
	// SearchEndpoint overrides the Brave Search endpoint.
	SearchEndpoint string

	HTTPClient *http.Client
	Logger     zerolog.Logger

	// procRoot overrides /proc for get_sys_info.
	procRoot string
}

func (o Options) withDefaults() Options {
	if o.ExecTimeout <= 0 {
		o.ExecTimeout = DefaultExecTimeout
	}
	if o.SearchMaxResults <= 0 {
		o.SearchMaxResults = DefaultMaxResults
	}
	if o.SearchMaxResults > maxSearchResults {
		o.SearchMaxResults = maxSearchResults
	}
	if o.SearchEndpoint == "" {
		o.SearchEndpoint = BraveEndpoint
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.procRoot == "" {
		o.procRoot = "/proc"
	}
	return o
}

// Tools returns the built-in tools configured by opts.
func Tools(opts Options) []tools.Tool {
	opts = opts.withDefaults()
	return []tools.Tool{
		readFileTool(opts),
		writeFileTool(opts),
		listDirTool(opts),
		execTool(opts),
		webSearchTool(opts),
		webFetchTool(opts),
		sysInfoTool(opts),
	}
}

// RegisterCoreTools registers every built-in tool on registry.
func RegisterCoreTools(registry *tools.Registry, opts Options) error {
	if registry == nil {
		return errors.New("tool registry is required")
	}

	for _, t := range Tools(opts) {
		if def, ok := t.(*tools.Definition); ok {
			if err := def.Check(); err != nil {
				return fmt.Errorf("failed to register tool %s: %w", t.Name(), err)
			}
		}
		registry.Register(t)
	}
	return nil
}

// resolvePath joins relative paths onto the workspace.
func resolvePath(workspace, path string) string {
	if path == "" {
		path = "."
	}
	if filepath.IsAbs(path) || workspace == "" {
		return path
	}
	return filepath.Join(workspace, path)
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}
