package git

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
)

// findGitRepositoryPath walks up from sourceFolder to the nearest repository root.
func findGitRepositoryPath(sourceFolder string) (string, error) {
	if sourceFolder == "" {
		return "", fmt.Errorf("source folder is not set")
	}

	for {
		_, err := git.PlainOpen(sourceFolder)
		if err == nil {
			return sourceFolder, nil
		}

		sourceFolder = filepath.Dir(sourceFolder)
		if sourceFolder == filepath.Dir(sourceFolder) {
			break
		}
	}

	return "", ErrNoRepository
}

// preferredRemoteURL returns the first URL of "origin", or of the alphabetically
// first remote that has one.
func preferredRemoteURL(repo *git.Repository) (string, error) {
	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			return cfg.URLs[0], nil
		}
	}

	remotes, err := repo.Remotes()
	if err != nil {
		return "", fmt.Errorf("failed to list remotes: %w", err)
	}
	sort.Slice(remotes, func(i, j int) bool {
		return remotes[i].Config().Name < remotes[j].Config().Name
	})
	for _, remote := range remotes {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			return cfg.URLs[0], nil
		}
	}
	return "", ErrNoRemote
}
