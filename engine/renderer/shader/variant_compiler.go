package shader

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrNotBound is returned by Recompile for a key that has never compiled successfully.
var ErrNotBound = errors.New("shader: no program bound for key")

// cacheKey identifies a compiled program by its variant key and the exact assembled text.
type cacheKey struct {
	variant string
	text    string
}

// CompilerStats counts compile outcomes since the compiler was created.
type CompilerStats struct {
	Hits     int
	Misses   int
	Failures int
}

// variantCompiler is the implementation of the VariantCompiler interface.
type variantCompiler struct {
	mu      *sync.Mutex
	backend ProgramBackend
	pp      PreProcessor
	cache   map[cacheKey]*program
	bound   map[string]*program
	stats   CompilerStats
}

// VariantCompiler compiles material programs for a set of feature flags. Programs are cached
// by variant key and assembled text, and one program per key is bound at a time.
type VariantCompiler interface {
	// Compile assembles the define block for key's flags in declaration order ahead of source,
	// resolves directives and builds the module. An identical key and text returns the cached
	// program without calling the backend. On success the program becomes the bound program
	// for key; on failure a *CompileError is returned, logged, and the previous binding stays.
	//
	// Parameters:
	//   - key: the variant key
	//   - source: the program text with directives
	//
	// Returns:
	//   - Program: the compiled program
	//   - error: a *CompileError on failure
	Compile(key VariantKey, source string) (Program, error)

	// Recompile applies key's flags to new source, replacing the bound program on success.
	// The key must already have a bound program.
	//
	// Parameters:
	//   - key: the variant key
	//   - source: the new program text
	//
	// Returns:
	//   - Program: the newly bound program
	//   - error: ErrNotBound, or a *CompileError with the old program still bound
	Recompile(key VariantKey, source string) (Program, error)

	// Bound returns the program currently bound for key.
	//
	// Parameters:
	//   - key: the variant key
	//
	// Returns:
	//   - Program: the bound program
	//   - bool: false if nothing has compiled for key
	Bound(key VariantKey) (Program, bool)

	// Stats returns the hit, miss and failure counters.
	//
	// Returns:
	//   - CompilerStats: the counters
	Stats() CompilerStats

	// Release frees every cached program.
	Release()
}

var _ VariantCompiler = &variantCompiler{}

// NewVariantCompiler creates a VariantCompiler. Without WithBackend the validating backend
// is used.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - VariantCompiler: the compiler
func NewVariantCompiler(options ...VariantCompilerBuilderOption) VariantCompiler {
	c := &variantCompiler{
		mu:    &sync.Mutex{},
		pp:    NewPreProcessor(),
		cache: make(map[cacheKey]*program),
		bound: make(map[string]*program),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.backend == nil {
		c.backend = NewValidatingBackend()
	}
	return c
}

// Assemble returns the text a variant is compiled from: the define block followed by source.
//
// Parameters:
//   - key: the variant key
//   - source: the program text
//
// Returns:
//   - string: the assembled text
func Assemble(key VariantKey, source string) string {
	return key.Flags.DefineBlock() + source
}

// canonical drops bits a FlagSet literal may carry beyond the declared flags, so keys that
// render the same string share one cache and binding entry.
func canonical(key VariantKey) VariantKey {
	key.Flags = key.Flags.Known()
	return key
}

func (c *variantCompiler) Compile(key VariantKey, source string) (Program, error) {
	key = canonical(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compile(key, source)
}

func (c *variantCompiler) Recompile(key VariantKey, source string) (Program, error) {
	key = canonical(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.bound[key.String()]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, key)
	}
	p, err := c.compile(key, source)
	if err != nil {
		return nil, err
	}
	log.Printf("[Shader] Recompiled %s", key)
	return p, nil
}

func (c *variantCompiler) compile(key VariantKey, source string) (Program, error) {
	ks := key.String()
	ck := cacheKey{variant: ks, text: Assemble(key, source)}

	if p, ok := c.cache[ck]; ok {
		c.stats.Hits++
		c.bound[ks] = p
		return p, nil
	}
	c.stats.Misses++

	processed, err := c.pp.Process(ck.text)
	if err != nil {
		return nil, c.fail(key, err)
	}
	module, err := c.backend.CreateModule(ks, processed)
	if err != nil {
		return nil, c.fail(key, err)
	}

	p := newProgram(key, processed, module)
	c.cache[ck] = p
	c.bound[ks] = p
	return p, nil
}

func (c *variantCompiler) fail(key VariantKey, err error) error {
	c.stats.Failures++
	ce := &CompileError{Key: key, Diagnostic: err.Error(), Err: err}
	if _, ok := c.bound[key.String()]; ok {
		log.Printf("[Shader] %v (keeping previously bound program)", ce)
	} else {
		log.Printf("[Shader] %v", ce)
	}
	return ce
}

func (c *variantCompiler) Bound(key VariantKey) (Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.bound[canonical(key).String()]
	if !ok {
		return nil, false
	}
	return p, true
}

func (c *variantCompiler) Stats() CompilerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *variantCompiler) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.cache {
		p.Release()
		delete(c.cache, k)
	}
	clear(c.bound)
}
