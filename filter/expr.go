package filter

import (
	"fmt"
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// defaultCompiler backs CompileFilter
var defaultCompiler = NewExprCompiler(WithCache(100))

// CompileFilter compiles an expression with the shared caching compiler
func CompileFilter(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements CachingCompiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter.
//
// Result fields are available as top-level variables (isValid, proposal,
// data) and the whole item as "item". Fields that are absent evaluate to nil.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate reports whether the item matches. Items that fail to evaluate
// do not match.
func (f *exprFilter) Evaluate(item Item) bool {
	ok, err := f.Match(item)
	return err == nil && ok
}

// Match evaluates the filter against an item
func (f *exprFilter) Match(item Item) (bool, error) {
	result, err := expr.Run(f.program, f.environment(item))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Reason:     err.Error(),
			Err:        err,
		}
	}

	// AsBool only checks statically known types; result fields are dynamic
	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			Reason:     fmt.Sprintf("expected bool, got %T", result),
		}
	}
	return matched, nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// IsThreadSafe indicates that expr filters are thread-safe
func (f *exprFilter) IsThreadSafe() bool {
	return true
}

func (f *exprFilter) environment(item Item) map[string]any {
	env := make(map[string]any, len(item)+len(f.helpers)+1)
	maps.Copy(env, item)
	maps.Copy(env, f.helpers)
	env["item"] = item
	env["field"] = createFieldFunc(item)
	env["hasField"] = createHasFieldFunc(item)
	return env
}

// createHelperFunctions creates the static helper functions used during compilation
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)

	// Case-insensitive string helpers; contains, startsWith and endsWith
	// are already operators
	funcs["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	funcs["hasPrefixFold"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	funcs["hasSuffixFold"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	funcs["str"] = func(v any) string {
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}

	// Item helpers; compile-time placeholders, bound per item at evaluation
	funcs["field"] = createFieldFunc(nil)
	funcs["hasField"] = createHasFieldFunc(nil)

	return funcs
}

// createFieldFunc returns a lookup for dotted paths such as "data.email".
func createFieldFunc(item Item) func(string) any {
	return func(path string) any {
		v, _ := lookup(item, path)
		return v
	}
}

func createHasFieldFunc(item Item) func(string) bool {
	return func(path string) bool {
		_, ok := lookup(item, path)
		return ok
	}
}

func lookup(item Item, path string) (any, bool) {
	var current any = item
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Items converts a response result into filterable items. An object becomes
// a single item; a list keeps its object elements. Anything else yields nil.
func Items(result any) []Item {
	switch v := result.(type) {
	case map[string]any:
		return []Item{v}
	case []any:
		items := make([]Item, 0, len(v))
		for _, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	default:
		return nil
	}
}
