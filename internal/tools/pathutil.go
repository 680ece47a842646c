package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePath resolves requestedPath relative to workDir when relative,
// normalizes it, and rejects it unless the result is a descendant of
// workDir. This is the sole authority on what "the workspace" means to
// any tool handler; every handler that takes a path calls it first,
// in addition to whatever the mediator already checked, as defense in
// depth.
func ValidatePath(workDir, requestedPath string) (string, error) {
	lower := strings.ToLower(requestedPath)
	if strings.Contains(requestedPath, "../") || strings.Contains(requestedPath, "..\\") || strings.Contains(lower, "%2e%2e") {
		return "", fmt.Errorf("path-violation: %q escapes the workspace", requestedPath)
	}

	var absPath string
	if filepath.IsAbs(requestedPath) {
		absPath = filepath.Clean(requestedPath)
	} else {
		absPath = filepath.Clean(filepath.Join(workDir, requestedPath))
	}

	rel, err := filepath.Rel(workDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path-violation: %q is outside the workspace root", requestedPath)
	}

	return absPath, nil
}

// AtomicWrite writes content to targetPath via a temp file + rename in
// the same directory, so a crash mid-write never leaves a truncated file
// in place of the original.
func AtomicWrite(targetPath string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(targetPath)
	tmp, err := os.CreateTemp(dir, ".bailu-*")
	if err != nil {
		return fmt.Errorf("fs-fault: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("fs-fault: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fs-fault: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("fs-fault: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return fmt.Errorf("fs-fault: rename temp file: %w", err)
	}
	tmpPath = ""
	return nil
}
