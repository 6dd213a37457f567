package errors

// Marker errors for host constructors that were wired without one of their
// required collaborators.

type ErrMissingStorage struct{}

func (ErrMissingStorage) Error() string { return "missing storage backend" }

type ErrMissingLocator struct{}

func (ErrMissingLocator) Error() string { return "missing service locator" }

type ErrMissingAdapter struct{}

func (ErrMissingAdapter) Error() string { return "missing activity adapter" }

type ErrMissingEngine struct{}

func (ErrMissingEngine) Error() string { return "missing task engine" }
