package repository

import "errors"

// ErrConditionFailed is returned when a conditional update matched no row,
// meaning another writer changed the record first or its guard no longer holds.
var ErrConditionFailed = errors.New("conditional update did not apply")

// ErrLinkTargetNotFound is returned by LinkingTokenRepository.Consume when the
// token exists but the identity it would merge into has been deleted.
var ErrLinkTargetNotFound = errors.New("linking target identity not found")
