package filepathparser

import (
	"os"
	"path/filepath"
	"strings"
)

// ParsePath expands a leading "~/" and returns the absolute form of path.
func ParsePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		dirname, _ := os.UserHomeDir()
		path = filepath.Join(dirname, path[2:])
	}

	return filepath.Abs(path)
}

// ParseOptionalPath is ParsePath for settings that may be left empty.
func ParseOptionalPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	return ParsePath(path)
}

// DefaultOutputPath is the folder used when no output folder is given: a folder named
// after the template, next to it.
func DefaultOutputPath(templatePath string) string {
	name := strings.TrimSuffix(filepath.Base(templatePath), filepath.Ext(templatePath))
	return filepath.Join(filepath.Dir(templatePath), name+"_merged")
}
