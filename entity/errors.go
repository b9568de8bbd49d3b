package entity

import "errors"

var (
	// ErrDuplicatePair signals that a (owner, viewer) assignment pair already
	// exists. This is the storage layer confirming the no-repeat invariant,
	// not a failure; callers skip and continue.
	ErrDuplicatePair = errors.New("assignment pair already exists")

	ErrNotFound  = errors.New("not found")
	ErrGroupFull = errors.New("group is full")
	ErrNameTaken = errors.New("display name already taken in group")
)
