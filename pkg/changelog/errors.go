package changelog

import "errors"

// Sentinel errors for generator construction. The CLI maps each to a
// distinct exit status.
var (
	// ErrSameRelease indicates the old and new release markers are equal.
	ErrSameRelease = errors.New("old and new release markers must differ")
	// ErrNoHomeRepository indicates no repository could be determined for
	// unqualified references.
	ErrNoHomeRepository = errors.New("home repository is not configured")
	// ErrMissingCollaborator indicates a required collaborator was not
	// supplied.
	ErrMissingCollaborator = errors.New("a log source, an issue fetcher and an entry store are required")
)
