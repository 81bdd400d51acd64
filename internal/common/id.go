package common

import (
	"fmt"

	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewSessionID generates a unique session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewUsageRecordID generates a unique usage record ID with the "use_" prefix
func NewUsageRecordID() string {
	return "use_" + uuid.New().String()
}

// ChunkID derives a deterministic chunk ID from its document and ordinal
// so the same corpus always produces the same chunk identities.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_%04d", documentID, ordinal)
}
