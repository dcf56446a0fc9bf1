package entry

import "errors"

var (
	// ErrNotFound indicates the record doesn't exist in the instance.
	ErrNotFound = errors.New("record not found")
	// ErrAccessDenied indicates the actor may not perform the operation.
	ErrAccessDenied = errors.New("access denied")
	// ErrEntryLimit indicates the actor reached the per-user entry cap.
	ErrEntryLimit = errors.New("maximum number of entries reached")
	// ErrUnknownField indicates a submitted field id outside the instance schema.
	ErrUnknownField = errors.New("field does not belong to this instance")
	// ErrEmptySubmission indicates a submission with no field filled in.
	ErrEmptySubmission = errors.New("no fields were filled in")
	// ErrNotAttachable indicates a file attached to a field type without file support.
	ErrNotAttachable = errors.New("field does not accept files")
	// ErrNoFileStore indicates file storage is not configured.
	ErrNoFileStore = errors.New("file storage not configured")
)
