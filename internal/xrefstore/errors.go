package xrefstore

import (
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.StoreError("could not open xref database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.StoreError("failed to initialize xref schema").Build()

	// ErrWriteFailed indicates a build or document record could not be written.
	ErrWriteFailed = errors.StoreError("failed to write xref records").Build()

	// ErrQueryFailed indicates a read query failed.
	ErrQueryFailed = errors.StoreError("failed to query xref records").Build()

	// ErrBuildNotFound indicates no build with the requested id exists.
	ErrBuildNotFound = errors.StoreError("build not found").Build()
)

// wrap returns an error matching sentinel under errors.Is that carries cause.
func wrap(sentinel *errors.ClassifiedError, cause error) *errors.ClassifiedError {
	return errors.WrapError(cause, errors.CategoryStore, sentinel.Message()).Build()
}
