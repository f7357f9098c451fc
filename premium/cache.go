package premium

// ArtifactCache holds the process-wide artifact release.
// It is populated once and read-only afterwards; a failed population is
// remembered so the process never serves from a partially loaded release.
type ArtifactCache interface {
	// Get returns the cached release, or false if it has not been loaded
	Get() (*ArtifactSet, bool)

	// GetOrLoad returns the cached release, running load on first use only.
	// Concurrent callers block until the single load completes.
	GetOrLoad(load func() (*ArtifactSet, error)) (*ArtifactSet, error)

	// IsValid returns true once a release has been loaded successfully
	IsValid() bool
}
