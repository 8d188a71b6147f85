package git

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/hashicorp/go-hclog"
)

// Reader exposes the parts of the local repository the synchronization needs:
// the remote URL used as the asset search key and the committer email used as a tag.
type Reader struct {
	sourceFolder string
	logger       hclog.Logger
}

// NewReader creates a Reader for the repository containing sourceFolder.
func NewReader(sourceFolder string, logger hclog.Logger) *Reader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if abs, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = abs
	}
	return &Reader{sourceFolder: sourceFolder, logger: logger.Named("git")}
}

// Root returns the repository root, or the source folder when it is not inside a repository.
func (r *Reader) Root() string {
	if root, err := findGitRepositoryPath(r.sourceFolder); err == nil {
		return root
	}
	return r.sourceFolder
}

func (r *Reader) open() (*git.Repository, bool) {
	root, err := findGitRepositoryPath(r.sourceFolder)
	if err != nil {
		r.logger.Warn("no git repository found", "folder", r.sourceFolder)
		return nil, false
	}
	repo, err := git.PlainOpen(root)
	if err != nil {
		r.logger.Warn("failed to open repository", "root", root, "error", err)
		return nil, false
	}
	return repo, true
}

// RemoteURL returns the repository remote URL, if any.
func (r *Reader) RemoteURL() (string, bool) {
	repo, ok := r.open()
	if !ok {
		return "", false
	}
	url, err := preferredRemoteURL(repo)
	if err != nil {
		r.logger.Warn("no remotes found for the repository", "error", err)
		return "", false
	}
	r.logger.Info("found repository URL", "url", url)
	return url, true
}

// CommitterEmail returns user.email from the repository and global git configuration.
func (r *Reader) CommitterEmail() (string, bool) {
	repo, ok := r.open()
	if !ok {
		return "", false
	}
	cfg, err := repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		r.logger.Error("failed to read git configuration", "error", err)
		return "", false
	}
	email := strings.TrimSpace(cfg.User.Email)
	if email == "" {
		r.logger.Warn("git user email not configured")
		return "", false
	}
	return email, true
}
