package vcsurl

import (
	"fmt"
	"strings"
)

const gitSuffix = ".git"

// remote URL prefixes in the order they are tried
var remotePrefixes = []string{"git@", "https://", "ssh://", "git://"}

// Identity is the normalized (host, path) pair of a VCS remote, used as an asset search key.
type Identity struct {
	Host string
	Path string
}

// SearchText is the free-text query used to look the repository up among assets.
func (i Identity) SearchText() string {
	return fmt.Sprintf("%s %s", i.Host, i.Path)
}

func (i Identity) String() string {
	return i.Host + "/" + i.Path
}

// ParseRemote turns a VCS remote URL into an Identity.
// Supported shapes: git@host:path, https://[user@]host[:port]/path,
// ssh://[user@]host[:port]/path and git://host[:port]/path, each with or without a
// trailing ".git". ParseRemote never panics; unrecognized input yields ok == false.
func ParseRemote(raw string) (Identity, bool) {
	working := stripGitSuffix(strings.TrimSpace(raw))
	if working == "" {
		return Identity{}, false
	}

	prefix := matchPrefix(working)
	if prefix == "" {
		return Identity{}, false
	}
	working = working[len(prefix):]

	divider := "/"
	if prefix == "git@" {
		divider = ":"
	} else {
		working = dropUserInfo(working)
	}

	idx := strings.Index(working, divider)
	if idx == -1 {
		return Identity{}, false
	}

	host := working[:idx]
	if prefix != "git@" {
		if colon := strings.Index(host, ":"); colon != -1 {
			host = host[:colon]
		}
	}
	path := strings.Trim(working[idx+1:], "/")

	if host == "" || path == "" {
		return Identity{}, false
	}
	return Identity{Host: host, Path: path}, true
}

// stripGitSuffix removes the last ".git" and everything after it, provided what
// follows is empty, a query string, a fragment or a single trailing slash.
// A ".git" inside a host name ("my.git.example.com") is left alone.
func stripGitSuffix(s string) string {
	idx := strings.LastIndex(s, gitSuffix)
	if idx == -1 {
		return s
	}
	rest := s[idx+len(gitSuffix):]
	if rest == "" || rest == "/" || strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "#") {
		return s[:idx]
	}
	return s
}

// matchPrefix returns the longest known prefix of s, or "".
func matchPrefix(s string) string {
	best := ""
	for _, p := range remotePrefixes {
		if strings.HasPrefix(s, p) && len(p) > len(best) {
			best = p
		}
	}
	return best
}

// dropUserInfo removes a "user@" segment in front of the host.
func dropUserInfo(s string) string {
	authority := s
	if slash := strings.Index(s, "/"); slash != -1 {
		authority = s[:slash]
	}
	if at := strings.LastIndex(authority, "@"); at != -1 {
		return s[at+1:]
	}
	return s
}
