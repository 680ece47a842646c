package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// WorkspaceConfig is advisory, workspace-root configuration the model
// and orchestrator may consult but never depend on for correctness —
// parse failures degrade to an empty value rather than blocking a run.
type WorkspaceConfig struct {
	TestCommand    string   `yaml:"test_command"`
	ImportantPaths []string `yaml:"important_paths"`
	BlockedCommand []string `yaml:"blocked_commands"`
}

// WorkspaceConfigName is the file this package looks for at the
// workspace root.
const WorkspaceConfigName = "bailu.yaml"

// LoadWorkspaceConfig reads <workspaceRoot>/bailu.yaml, returning a
// zero-value WorkspaceConfig (not an error) if the file is absent or
// fails to parse — workspace config is always advisory.
func LoadWorkspaceConfig(workspaceRoot string) WorkspaceConfig {
	data, err := os.ReadFile(filepath.Join(workspaceRoot, WorkspaceConfigName))
	if err != nil {
		return WorkspaceConfig{}
	}
	var cfg WorkspaceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return WorkspaceConfig{}
	}
	return cfg
}

// WorkspaceWatcher holds the live-reloaded WorkspaceConfig for one
// workspace root, refreshed on every write to bailu.yaml so Current
// reflects a mid-session edit without restarting the process. The
// orchestrator does not read it.
type WorkspaceWatcher struct {
	mu      sync.RWMutex
	current WorkspaceConfig
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchWorkspaceConfig starts watching <workspaceRoot>/bailu.yaml,
// loading it immediately and again on every subsequent write or create
// event. If the filesystem watcher cannot start (e.g. no inotify
// support), it falls back to the one-shot load with no live reload —
// this is advisory configuration, not a hard dependency.
func WatchWorkspaceConfig(workspaceRoot string) *WorkspaceWatcher {
	w := &WorkspaceWatcher{
		current: LoadWorkspaceConfig(workspaceRoot),
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return w
	}
	if err := watcher.Add(workspaceRoot); err != nil {
		watcher.Close()
		return w
	}
	w.watcher = watcher

	target := filepath.Join(workspaceRoot, WorkspaceConfigName)
	go w.loop(target, workspaceRoot)
	return w
}

func (w *WorkspaceWatcher) loop(target, workspaceRoot string) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(target) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.mu.Lock()
				w.current = LoadWorkspaceConfig(workspaceRoot)
				w.mu.Unlock()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Current returns the most recently loaded WorkspaceConfig.
func (w *WorkspaceWatcher) Current() WorkspaceConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the underlying filesystem watcher, if one was started.
func (w *WorkspaceWatcher) Close() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
