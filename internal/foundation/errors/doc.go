// Package errors provides the classified error primitives used across buildpilot.
//
// A ClassifiedError carries a category (config, filesystem, build, git, ...), a severity and
// optional structured context. The CLI adapter turns classified errors into exit codes and
// user-facing messages.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "create report directory").
//		WithContext("path", dir).
//		Build()
package errors
