package book

import "errors"

// Repository-level errors
var (
	ErrBookNotFound = errors.New("book not found")
)
