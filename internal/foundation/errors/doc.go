// Package errors provides the classified error primitives used across docschema.
//
// Every failure raised by the interpreters, the merger and the host is a
// ClassifiedError carrying a category, a severity and structured context
// (uid, path, file) so that diagnostics stay actionable.
//
// Example usage:
//
//	err := errors.ContentError("expected string value").
//		WithContext("path", "/summary").
//		WithContext("file", "api/Foo.yml").
//		Build()
package errors
