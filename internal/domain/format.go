package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// InputFormat is the kernel import keyword for a CAD file
type InputFormat string

const (
	InputFormatSTEP InputFormat = "step"
	InputFormatACIS InputFormat = "acis"
)

// DetectInputFormat maps a CAD filename to its import format.
// .stp and .step import as STEP, .sat as ACIS.
func DetectInputFormat(filename string) (InputFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".stp", ".step":
		return InputFormatSTEP, nil
	case ".sat":
		return InputFormatACIS, nil
	default:
		return "", fmt.Errorf("%w: %s (use .stp, .step or .sat)", ErrUnsupportedInputFormat, filename)
	}
}

// checkExtension verifies that filename ends with one of the allowed
// extensions. An empty filename means the output is disabled and passes.
func checkExtension(field, filename string, allowed ...string) error {
	if filename == "" {
		return nil
	}
	ext := filepath.Ext(filename)
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q should end with %s",
		ErrInvalidOutputExtension, field, filename, strings.Join(allowed, " or "))
}
