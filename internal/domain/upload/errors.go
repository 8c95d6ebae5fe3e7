package upload

import "errors"

var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrNotOwner       = errors.New("you do not own this upload")
	ErrNoFile         = errors.New("no file provided")
	ErrNotCSV         = errors.New("please upload a CSV file")
)
