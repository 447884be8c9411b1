package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/javanhut/forked/internal/atomicrepo"
	"github.com/javanhut/forked/internal/config"
	"github.com/javanhut/forked/internal/document"
	"github.com/javanhut/forked/internal/filerepo"
	"github.com/javanhut/forked/internal/forked"
	"github.com/javanhut/forked/internal/store"
)

var errNotInitialized = errors.New("not a forked repository (run 'forked init')")

// session is one command's view of the repository: the resource engine
// over the configured backend, plus what is needed to flush and release it.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	res      *forked.Resource[document.Document]
	resolver forked.Resolver[document.Document]

	save   func() error
	close  func() error
	cancel func()
}

type backend struct {
	repo  forked.Repository[document.Document]
	save  func() error
	close func() error
}

func openBackend(cfg *config.Config) (backend, error) {
	path := cfg.StoragePath()
	switch cfg.Storage.Backend {
	case config.BackendAtomic:
		repo, err := atomicrepo.Load[document.Document](path)
		if err != nil {
			return backend{}, err
		}
		return backend{
			repo:  repo,
			save:  func() error { return repo.Save(path) },
			close: func() error { return nil },
		}, nil
	case config.BackendFile:
		repo, err := filerepo.Open[document.Document](path)
		if err != nil {
			return backend{}, err
		}
		return backend{repo: repo, close: repo.Close}, nil
	case config.BackendBolt:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return backend{}, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := store.Shared(path)
		if err != nil {
			return backend{}, err
		}
		return backend{repo: store.NewRepository[document.Document](db.DB), close: db.Close}, nil
	}
	return backend{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func resolverFor(name string) (forked.Resolver[document.Document], error) {
	switch name {
	case config.ResolverMergeable:
		return forked.MergeableResolver[document.Document]{}, nil
	case config.ResolverLWW:
		return forked.LastWriteWins[document.Document]{}, nil
	}
	return nil, fmt.Errorf("unknown merge resolver %q", name)
}

// openSession loads the configuration and opens the resource. It fails
// unless the working directory has been initialized.
func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	if _, err := os.Stat(config.Dir); err != nil {
		if os.IsNotExist(err) {
			return nil, errNotInitialized
		}
		return nil, err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.SlogLevel()
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	resolver, err := resolverFor(cfg.Merge.Resolver)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	reg := prometheus.NewRegistry()
	res, err := forked.New(b.repo, forked.WithLogger(logger), forked.WithMetrics(forked.NewMetrics(reg)))
	if err != nil {
		_ = b.close()
		return nil, err
	}
	cancel := res.Subscribe(func(c forked.Change) {
		if c.IsMerge() {
			logger.Info("merged", "fork", c.Fork, "from", c.MergingFork, "version", c.Version)
			return
		}
		logger.Info("updated", "fork", c.Fork, "version", c.Version)
	})

	return &session{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		res:      res,
		resolver: resolver,
		save:     b.save,
		close:    b.close,
		cancel:   cancel,
	}, nil
}

// finish saves the repository if the command succeeded and releases it.
func (s *session) finish(cmd *cobra.Command, opts *rootOptions, err error) error {
	s.cancel()
	if err == nil && s.save != nil {
		err = s.save()
	}
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if opts.metrics {
		if merr := s.writeMetrics(cmd); err == nil {
			err = merr
		}
	}
	return err
}

func (s *session) writeMetrics(cmd *cobra.Command) error {
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(cmd.ErrOrStderr(), mf); err != nil {
			return err
		}
	}
	return nil
}

// withSession adapts fn into a cobra RunE that opens a session around it.
func withSession(opts *rootOptions, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		return s.finish(cmd, opts, fn(cmd, s, args))
	}
}
