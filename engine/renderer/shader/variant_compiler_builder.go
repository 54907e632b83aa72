package shader

// VariantCompilerBuilderOption is a functional option for configuring a VariantCompiler.
type VariantCompilerBuilderOption func(*variantCompiler)

// WithBackend sets the backend that builds modules from pre-processed source.
//
// Parameters:
//   - backend: the program backend
//
// Returns:
//   - VariantCompilerBuilderOption: a function that applies the backend option
func WithBackend(backend ProgramBackend) VariantCompilerBuilderOption {
	return func(c *variantCompiler) {
		c.backend = backend
	}
}

// WithPreProcessor replaces the directive pre-processor.
//
// Parameters:
//   - pp: the pre-processor
//
// Returns:
//   - VariantCompilerBuilderOption: a function that applies the pre-processor option
func WithPreProcessor(pp PreProcessor) VariantCompilerBuilderOption {
	return func(c *variantCompiler) {
		c.pp = pp
	}
}
