package opqueue

import "context"

// BlockOperation runs a function as an Operation
type BlockOperation struct {
	Base
	fn func(ctx context.Context)
}

// NewBlock wraps fn. fn may be nil
func NewBlock(fn func(ctx context.Context)) *BlockOperation {
	return &BlockOperation{fn: fn}
}

// Start runs fn unless the operation was cancelled before it began
func (b *BlockOperation) Start(ctx context.Context) {
	if !b.BeginExecuting() {
		return
	}
	defer b.Finish()
	if b.fn != nil {
		b.fn(ctx)
	}
}
