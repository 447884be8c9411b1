package forked

// Resolver decides the content of a merge when both main and a fork have
// changed since their common ancestor. The dominant commit is the one with
// the greater version.
type Resolver[R any] interface {
	Resolve(dominant, subordinate, commonAncestor Commit[R]) (*R, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc[R any] func(dominant, subordinate, commonAncestor Commit[R]) (*R, error)

// Resolve calls f.
func (f ResolverFunc[R]) Resolve(dominant, subordinate, commonAncestor Commit[R]) (*R, error) {
	return f(dominant, subordinate, commonAncestor)
}

// LastWriteWins ignores the ancestor and keeps the dominant content.
type LastWriteWins[R any] struct{}

// Resolve implements Resolver.
func (LastWriteWins[R]) Resolve(dominant, _, _ Commit[R]) (*R, error) {
	return CloneContent(dominant.Content), nil
}

// MergeableResolver delegates to the content's Mergeable implementation
// when both sides hold a value. A value present on only one side is kept,
// and two absent sides stay absent. Content that is not Mergeable falls
// back to last-write-wins.
type MergeableResolver[R any] struct{}

// Resolve implements Resolver.
func (MergeableResolver[R]) Resolve(dominant, subordinate, commonAncestor Commit[R]) (*R, error) {
	switch {
	case dominant.Content != nil && subordinate.Content != nil:
		m, ok := AsMergeable(*dominant.Content)
		if !ok {
			return CloneContent(dominant.Content), nil
		}
		var ancestor R
		if commonAncestor.Content != nil {
			ancestor = *commonAncestor.Content
		}
		merged, err := m.Merged(*subordinate.Content, ancestor)
		if err != nil {
			return nil, err
		}
		return &merged, nil
	case dominant.Content != nil:
		return CloneContent(dominant.Content), nil
	case subordinate.Content != nil:
		return CloneContent(subordinate.Content), nil
	}
	return nil, nil
}

// DefaultResolver returns MergeableResolver when R implements Mergeable and
// LastWriteWins otherwise.
func DefaultResolver[R any]() Resolver[R] {
	if IsMergeable[R]() {
		return MergeableResolver[R]{}
	}
	return LastWriteWins[R]{}
}

// resolve orders two commits by version and runs the resolver.
func resolve[R any](resolver Resolver[R], a, b, ancestor Commit[R]) (*R, error) {
	if resolver == nil {
		resolver = DefaultResolver[R]()
	}
	dominant, subordinate := a, b
	if a.Version.Less(b.Version) {
		dominant, subordinate = b, a
	}
	return resolver.Resolve(dominant, subordinate, ancestor)
}
