// Package classifier labels message text as spam or ham. Backends are
// pretrained or external; nothing here learns online.
package classifier

import (
	"context"
	"fmt"
)

// Classifier reports whether text is spam.
type Classifier interface {
	Classify(ctx context.Context, text string) (bool, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, text string) (bool, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, text string) (bool, error) {
	return f(ctx, text)
}

// Disabled labels everything as ham.
type Disabled struct{}

// Classify always reports ham.
func (Disabled) Classify(context.Context, string) (bool, error) {
	return false, nil
}

// Recorder receives one call per classification.
type Recorder interface {
	RecordClassification(backend, result string)
}

// Instrumented counts outcomes of the wrapped backend and converts panics
// into errors.
type Instrumented struct {
	backend  string
	next     Classifier
	recorder Recorder
}

// NewInstrumented wraps next under the given backend label.
func NewInstrumented(backend string, next Classifier, recorder Recorder) *Instrumented {
	return &Instrumented{backend: backend, next: next, recorder: recorder}
}

// Classify delegates to the wrapped backend and records the outcome as
// spam, ham or error.
func (c *Instrumented) Classify(ctx context.Context, text string) (spam bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			spam, err = false, fmt.Errorf("classifier panic: %v", r)
		}
		if c.recorder == nil {
			return
		}
		switch {
		case err != nil:
			c.recorder.RecordClassification(c.backend, "error")
		case spam:
			c.recorder.RecordClassification(c.backend, "spam")
		default:
			c.recorder.RecordClassification(c.backend, "ham")
		}
	}()
	return c.next.Classify(ctx, text)
}
