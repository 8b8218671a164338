package security

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateUploadID validates that an uploaded xlsx/pdf source's ID is a
// valid UUID containing no path traversal sequences, adapted from the
// teacher's ValidateFileID for MARCout's source-file upload directory.
func ValidateUploadID(uploadID string) error {
	if uploadID == "" {
		return fmt.Errorf("upload_id cannot be empty")
	}

	if strings.Contains(uploadID, "..") {
		return fmt.Errorf("invalid upload_id: path traversal attempt detected (..)")
	}
	if strings.Contains(uploadID, "/") {
		return fmt.Errorf("invalid upload_id: path traversal attempt detected (/)")
	}
	if strings.Contains(uploadID, "\\") {
		return fmt.Errorf("invalid upload_id: path traversal attempt detected (\\)")
	}

	uuidPattern := regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)
	if !uuidPattern.MatchString(uploadID) {
		return fmt.Errorf("invalid upload_id format: expected UUID (got %q)", uploadID)
	}

	return nil
}
