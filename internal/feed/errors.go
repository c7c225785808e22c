package feed

import (
	"errors"
	"fmt"
)

// FetchError reports a failed page retrieval. The cache is never touched when
// one is returned.
type FetchError struct {
	Key    FilterKey
	Cursor string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Cursor == "" {
		return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("fetch %s after %s: %v", e.Key, e.Cursor, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MutationError reports a failed like, unlike or create request.
type MutationError struct {
	Op     string
	ItemID string
	Err    error
}

func (e *MutationError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func IsMutationError(err error) bool {
	var me *MutationError
	return errors.As(err, &me)
}
