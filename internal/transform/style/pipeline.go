package style

import (
	"bytes"
	"context"
	"errors"
)

// ErrEmptyOutput is returned when compilation produced no CSS at all.
var ErrEmptyOutput = errors.New("stylesheet compiled to empty output")

// Pipeline runs compile, prefix and minify in that order.
type Pipeline struct {
	Compiler Compiler
	Prefix   bool
}

// Process turns one stylesheet source into minified CSS.
func (p Pipeline) Process(ctx context.Context, path string, src []byte) ([]byte, error) {
	compiled, err := p.Compiler.Compile(ctx, path, src)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(compiled)) == 0 {
		return nil, ErrEmptyOutput
	}
	if p.Prefix {
		compiled = Prefix(compiled)
	}
	return Minify(compiled)
}
