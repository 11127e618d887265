package repository

import "errors"

var (
	// ErrRecordNotFound indicates no history record has the requested id
	ErrRecordNotFound = errors.New("processing record not found")

	// ErrInvalidRecord indicates a record is missing required fields
	ErrInvalidRecord = errors.New("invalid processing record")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
