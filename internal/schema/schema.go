// Package schema lints envelope JSON against a CUE definition.
//
// Lint is stricter about reporting than envelope.Deserialize: it returns
// every violation in the document rather than the first one, which makes
// it the better tool for checking hand-written fixtures.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed envelope.cue
var envelopeSchema string

// LintError lists every schema violation found in a document.
type LintError struct {
	Messages []string
}

func (e *LintError) Error() string {
	if len(e.Messages) == 1 {
		return "lint: " + e.Messages[0]
	}
	return fmt.Sprintf("lint: %d problems: %s", len(e.Messages), strings.Join(e.Messages, "; "))
}

// Linter validates envelope JSON. A cue.Context is not safe for concurrent
// use, so calls are serialized.
type Linter struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// NewLinter compiles the embedded envelope schema.
func NewLinter() (*Linter, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(envelopeSchema, cue.Filename("envelope.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling envelope schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Envelope"))
	if !def.Exists() {
		return nil, fmt.Errorf("envelope schema has no #Envelope definition")
	}
	return &Linter{ctx: ctx, def: def}, nil
}

// Lint checks that data is a JSON object satisfying #Envelope.
// Returns nil on success and *LintError otherwise.
func (l *Linter) Lint(data []byte) error {
	expr, err := cuejson.Extract("envelope.json", data)
	if err != nil {
		return &LintError{Messages: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	doc := l.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return toLintError(err)
	}
	if doc.IncompleteKind() != cue.StructKind {
		return &LintError{Messages: []string{fmt.Sprintf("expected object, got %v", doc.IncompleteKind())}}
	}

	unified := l.def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.All()); err != nil {
		return toLintError(err)
	}
	return nil
}

var (
	defaultOnce   sync.Once
	defaultLinter *Linter
	defaultErr    error
)

// Lint checks data with a shared Linter built on first use.
func Lint(data []byte) error {
	defaultOnce.Do(func() {
		defaultLinter, defaultErr = NewLinter()
	})
	if defaultErr != nil {
		return defaultErr
	}
	return defaultLinter.Lint(data)
}

func toLintError(err error) *LintError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LintError{Messages: []string{err.Error()}}
	}
	seen := make(map[string]bool, len(errs))
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Error()
		if seen[msg] {
			continue
		}
		seen[msg] = true
		msgs = append(msgs, msg)
	}
	return &LintError{Messages: msgs}
}
