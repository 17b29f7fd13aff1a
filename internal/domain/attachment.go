package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Attachment is a file selected for upload and not yet sent.
type Attachment struct {
	Name string
	Data []byte
}

// Validate checks that the attachment carries a usable file name.
func (a Attachment) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return fmt.Errorf("attachment name is required")
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("attachment name %q must not contain a directory", a.Name)
	}
	return nil
}

// DocName returns the display name of a document path, accepting both
// slash and backslash separators.
func DocName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
