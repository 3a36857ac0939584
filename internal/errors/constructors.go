package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *ClassifiedError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *ClassifiedError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration could not be parsed").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *ClassifiedError {
	return New(CategoryValidation, SeverityFatal, "validation failed: "+field+": "+reason).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Task errors

// TransformFailed reports a collaborator rejecting one input file.
func TransformFailed(task, path string, cause error) *ClassifiedError {
	return Wrap(cause, CategoryTransform, SeverityError, "transform failed").
		WithContext("task", task).
		WithContext("path", path)
}

func FileSystemError(operation, path string, cause error) *ClassifiedError {
	return Wrap(cause, CategoryFileSystem, SeverityError, operation+" failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

// TaskFailed wraps whatever made a task run fail. The category of the cause is
// kept reachable through Unwrap so exit codes still reflect it.
func TaskFailed(task string, cause error) *ClassifiedError {
	return Wrap(cause, CategoryTask, SeverityError, "task "+task+" failed").
		WithContext("task", task)
}

// Internal errors

func InternalError(message string, cause error) *ClassifiedError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
