package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager handles export file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// CreateTaskOutputDir creates the directory holding a task's exports
func (om *OutputManager) CreateTaskOutputDir(taskName string) (string, error) {
	taskDir := filepath.Join(om.BaseOutputDir, SafeName(taskName))

	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create task output directory: %w", err)
	}

	return taskDir, nil
}

// GetOutputFilePath generates a full path for an export file
func (om *OutputManager) GetOutputFilePath(taskName, fileName string) (string, error) {
	taskDir, err := om.CreateTaskOutputDir(taskName)
	if err != nil {
		return "", err
	}

	// Clean the filename to remove any path separators
	cleanFileName := filepath.Base(fileName)

	return filepath.Join(taskDir, cleanFileName), nil
}

// SafeName turns a task name into a single path segment.
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
