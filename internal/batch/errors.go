// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import "fmt"

// ConfigurationError reports invalid batch inputs: an empty or oversized
// chemical list, or parameters outside their allowed ranges. Nothing is
// persisted when one is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid batch configuration: " + e.Reason
}

// StorageError wraps a session persistence failure. Unlike per-chemical
// fetch errors, it aborts the whole batch: results that cannot be
// recorded are results the user will never see.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage failed during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
