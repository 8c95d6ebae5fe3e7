package result

import "errors"

var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrForbidden      = errors.New("you do not have access to this analysis")
	ErrResultNotFound = errors.New("analysis result not found")
)
