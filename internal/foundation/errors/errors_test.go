package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategorySchema, "invalid schema").
			WithSeverity(SeverityFatal).
			WithContext("file", "ManagedReference.schema.json").
			Build()

		assert.Equal(t, CategorySchema, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid schema", err.Message())

		file, exists := err.Context().GetString("file")
		require.True(t, exists)
		assert.Equal(t, "ManagedReference.schema.json", file)
	})

	t.Run("Error string carries sorted context", func(t *testing.T) {
		err := ContentError("expected string").
			WithContext("path", "/summary").
			WithContext("file", "api/a.yml").
			WithContext("uid", "").
			Build()

		assert.Equal(t, "[content:fatal] expected string (file=api/a.yml, path=/summary)", err.Error())
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		inner := OverwriteError("shape mismatch").WithContext("uid", "M.Foo").Build()
		wrapped := fmt.Errorf("apply overwrite: %w", inner)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryOverwrite))
		assert.True(t, HasSeverity(wrapped, SeverityFatal))
		assert.Equal(t, CategoryOverwrite, GetCategory(wrapped))
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
		assert.Equal(t, SeverityError, GetSeverity(errors.New("plain")))
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("disk full")
		err := WrapError(originalErr, CategoryStore, "save failed").
			Warning().
			Retryable().
			WithContext("document", "api/a.yml").
			WithContext("attempt", 2).
			Build()

		assert.Equal(t, CategoryStore, err.Category())
		assert.Equal(t, SeverityWarning, err.Severity())
		assert.Equal(t, RetryBackoff, err.RetryStrategy())
		assert.True(t, err.CanRetry())
		assert.ErrorIs(t, err, originalErr)

		attempt, ok := err.Context().Get("attempt")
		require.True(t, ok)
		assert.Equal(t, 2, attempt)
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryUserAction},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal, RetryNever},
			{"SchemaError", SchemaError("test"), CategorySchema, SeverityFatal, RetryUserAction},
			{"ContentError", ContentError("test"), CategoryContent, SeverityFatal, RetryNever},
			{"OverwriteError", OverwriteError("test"), CategoryOverwrite, SeverityFatal, RetryNever},
			{"MarkdownError", MarkdownError("test"), CategoryMarkdown, SeverityFatal, RetryNever},
			{"BuildError", BuildError("test"), CategoryBuild, SeverityFatal, RetryNever},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError, RetryBackoff},
			{"StoreError", StoreError("test"), CategoryStore, SeverityError, RetryBackoff},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				assert.Equal(t, tt.category, err.Category())
				assert.Equal(t, tt.severity, err.Severity())
				assert.Equal(t, tt.retry, err.RetryStrategy())
			})
		}
	})
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := ContentError("bad").WithContext("path", "/a").Build()
	derived := base.WithContext("uid", "X")

	_, ok := base.Context().Get("uid")
	assert.False(t, ok)
	uid, ok := derived.Context().GetString("uid")
	require.True(t, ok)
	assert.Equal(t, "X", uid)
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	v1, _ := merged.GetString("key1")
	v2, _ := merged.GetString("key2")
	shared, _ := merged.GetString("shared")
	assert.Equal(t, "value1", v1)
	assert.Equal(t, "value2", v2)
	assert.Equal(t, "overridden", shared)
}
