package domain

import "errors"

// Engine-level errors, distinct from the fetch client's own taxonomy.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrGroupNotFound       = errors.New("group not found")
	ErrDuplicateMember     = errors.New("product already in group")
	ErrInsufficientMembers = errors.New("group needs at least 2 members")
	ErrPersistence         = errors.New("snapshot persistence failed")
)
