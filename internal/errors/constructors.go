package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *PipelineError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *PipelineError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *PipelineError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Catalog errors

func CatalogNotFound(path string) *PipelineError {
	return New(CategoryCatalog, SeverityFatal, "topic catalog not found").
		WithContext("path", path)
}

func CatalogMalformed(path string, cause error) *PipelineError {
	return Wrap(cause, CategoryCatalog, SeverityFatal, "topic catalog is malformed").
		WithContext("path", path)
}

func CatalogEntryInvalid(index int, reason string) *PipelineError {
	return New(CategoryCatalog, SeverityFatal, "invalid catalog entry").
		WithContext("index", index).
		WithContext("reason", reason)
}

// Generation errors

func GenerationFailed(slug string, cause error) *PipelineError {
	return Wrap(cause, CategoryGeneration, SeverityError, "article generation failed").
		WithContext("slug", slug)
}

func GenerationRateLimited(slug string, cause error) *PipelineError {
	return WrapRetryable(cause, CategoryRateLimit, SeverityWarning, "generation service rate limit").
		WithContext("slug", slug)
}

func RetriesExhausted(slug string, attempts int, cause error) *PipelineError {
	return Wrap(cause, CategoryGeneration, SeverityError, "generation retries exhausted").
		WithContext("slug", slug).
		WithContext("attempts", attempts)
}

// Build and persistence errors

func BuildFailed(stage string, cause error) *PipelineError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "site build failed").
		WithContext("stage", stage)
}

func RenderFailed(page string, cause error) *PipelineError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "page render failed").
		WithContext("page", page)
}

func StoreWriteError(slug string, cause error) *PipelineError {
	return Wrap(cause, CategoryFileSystem, SeverityError, "article store write failed").
		WithContext("slug", slug)
}

func StateWriteError(cause error) *PipelineError {
	return Wrap(cause, CategoryFileSystem, SeverityError, "state store write failed")
}
