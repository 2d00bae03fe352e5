package storage

import "errors"

var (
	ErrDBConnection = errors.New("database connection error")
	ErrIOFailure    = errors.New("storage io failure")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrNotFound     = errors.New("not found")
	ErrRunNotFound  = errors.New("run not found")
)
