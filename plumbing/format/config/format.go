package config

// RepositoryFormatVersion is the value of core.repositoryformatversion, as
// defined at https://git-scm.com/docs/repository-version.
type RepositoryFormatVersion string

const (
	// Version0 is the original on-disk format.
	Version0 RepositoryFormatVersion = "0"
	// Version1 additionally requires readers to understand every key
	// under the extensions section.
	Version1 RepositoryFormatVersion = "1"

	// DefaultRepositoryFormatVersion is used for newly-initialized
	// repositories that don't need any extensions.* key.
	DefaultRepositoryFormatVersion = Version0
)
