package sink

import "context"

// Nop discards every record. It is the default sink.
type Nop struct{}

// NewNop returns a no-op sink.
func NewNop() *Nop {
	return &Nop{}
}

// Write validates rec and otherwise does nothing.
func (n *Nop) Write(_ context.Context, rec *Record) error {
	if rec == nil {
		return ErrNilRecord
	}
	return nil
}

// Close is a no-op.
func (n *Nop) Close() error {
	return nil
}
