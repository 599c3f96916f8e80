package conversation

import (
	"errors"
	"fmt"
)

// Attachment failures. Both are wrapped by *AttachmentError.
var (
	ErrAttachmentNotFound    = errors.New("attachment not found")
	ErrUnsupportedAttachment = errors.New("only images are supported as attachments")
)

// AttachmentError reports an attachment that cannot be sent to the model.
type AttachmentError struct {
	Path     string
	MimeType string
	Err      error
}

func (e *AttachmentError) Error() string {
	if errors.Is(e.Err, ErrUnsupportedAttachment) {
		return fmt.Sprintf("%s: %s (%s)", e.Err, e.Path, e.MimeType)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Path)
}

func (e *AttachmentError) Unwrap() error { return e.Err }
