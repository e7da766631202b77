package repo

import (
	"time"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/worktree"
)

// MetaDirName is the repository metadata directory inside the working root.
const MetaDirName = ".twig"

// Repo represents an opened twig repository. It owns every piece of mutable
// repository state: HEAD, the staging set, config and the object store.
type Repo struct {
	RootDir string        // working directory root
	TwigDir string        // .twig/ directory
	Store   *object.Store // content-addressed object store
	Work    *worktree.Dir // working directory snapshot and materializer
	Config  *Config       // settings from .twig/config.toml

	log logging.Logger
	now func() time.Time

	graph *commitGraph
}

// Option configures a Repo at Init or Open time.
type Option func(*Repo)

// WithClock overrides the clock used for commit and reflog timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) {
		r.now = now
	}
}

// WithLogger sets the logger used for debug tracing of ref moves, commits
// and merges.
func WithLogger(l logging.Logger) Option {
	return func(r *Repo) {
		r.log = l
	}
}

// Logger returns the repository logger with the repo field attached.
func (r *Repo) Logger() logging.Logger {
	return r.log
}
