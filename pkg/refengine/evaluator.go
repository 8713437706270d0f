package refengine

import (
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"
)

// evaluator caches compiled JMESPath expressions, adapted from
// orchid/pkg/expressions/evaluator.go's Evaluator — there it compiled
// plan-step templating expressions against a step's output; here the same
// cache-and-compile shape backs C2's lookup-field extraction, since a
// lookup_config candidate field is evaluated on every record in the batch
// and recompiling it each time would be wasted work.
type evaluator struct {
	cache map[string]*jmespath.JMESPath
	mu    sync.RWMutex
}

func newEvaluator() *evaluator {
	return &evaluator{cache: make(map[string]*jmespath.JMESPath)}
}

func (e *evaluator) Evaluate(expression string, data any) (any, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup expression %q: %w", expression, err)
	}
	return compiled.Search(data)
}

func (e *evaluator) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	if compiled, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()
	return compiled, nil
}

// lookupEvaluator is the package-wide cache for SelectLookupValue. A batch
// of records reuses the same compiled expression for the lifetime of the
// process, not just one import/export request.
var lookupEvaluator = newEvaluator()
