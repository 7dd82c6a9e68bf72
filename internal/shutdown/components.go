package shutdown

import (
	"context"
	"io"
)

// Shutdowner is anything with a context-aware Shutdown, such as the API
// server or a viewer.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ShutdownerComponent adapts a Shutdowner to a named Component.
type ShutdownerComponent struct {
	name string
	s    Shutdowner
}

// NewShutdownerComponent creates a new component around s.
func NewShutdownerComponent(name string, s Shutdowner) *ShutdownerComponent {
	return &ShutdownerComponent{
		name: name,
		s:    s,
	}
}

// Name returns the component name.
func (c *ShutdownerComponent) Name() string {
	return c.name
}

// Shutdown calls the wrapped Shutdown.
func (c *ShutdownerComponent) Shutdown(ctx context.Context) error {
	return c.s.Shutdown(ctx)
}

// CloserComponent wraps an io.Closer for graceful shutdown.
type CloserComponent struct {
	name   string
	closer io.Closer
}

// NewCloserComponent creates a new closer shutdown component.
func NewCloserComponent(name string, closer io.Closer) *CloserComponent {
	return &CloserComponent{
		name:   name,
		closer: closer,
	}
}

// Name returns the component name.
func (c *CloserComponent) Name() string {
	return c.name
}

// Shutdown closes the underlying resource.
func (c *CloserComponent) Shutdown(ctx context.Context) error {
	return c.closer.Close()
}
