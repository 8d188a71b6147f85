package git

import "errors"

// Repository lookup errors
var (
	ErrNoRepository = errors.New("source folder is not a git repository")
	ErrNoRemote     = errors.New("repository has no remote with a URL")
)
