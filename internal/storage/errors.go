package storage

import "errors"

var (
	ErrPreferencesNotFound = errors.New("preferences not found")
	ErrInvalidClientID     = errors.New("invalid client id")
	ErrInvalidData         = errors.New("invalid data")
	ErrStorageInit         = errors.New("storage initialization failed")
	ErrFileOperation       = errors.New("file operation failed")
)
