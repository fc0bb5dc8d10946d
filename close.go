package graphkb

import "context"

// Close releases the resources of the knowledge base: the index mapping is
// released first, then the scratch directory is removed and the container
// closed. It is idempotent; queries after Close return ErrClosed.
func (kb *KnowledgeBase) Close() error {
	if kb == nil {
		return nil
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if kb.closed {
		return nil
	}
	kb.closed = true

	var firstErr error
	if kb.archive != nil {
		if err := kb.archive.Close(); err != nil {
			firstErr = &ResourceError{Op: "close", Path: kb.archive.Path(), Err: err}
		}
	}
	kb.logger.LogClose(context.Background(), kb.archive.Path(), firstErr)
	return firstErr
}
