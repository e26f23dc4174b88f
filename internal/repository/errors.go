// Package repository defines the storage contracts used by the service
// layer together with their MySQL implementation. The sentinel values
// below let higher layers distinguish failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded update matched no row because
// the status or version changed underneath the caller, or when a
// unique constraint rejected an insert. The enclosing transaction must
// be rolled back.
var ErrConflict = errors.New("conflict")

