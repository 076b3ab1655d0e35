package scan

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/basescout/basescout/pkg/types"
)

// ParseReference resolves a raw reference string into its registry,
// repository and tag parts. Bare references pick up the default
// registry and the "latest" tag.
func ParseReference(raw, defaultRegistry string) (types.ImageReference, error) {
	opts := []name.Option{}
	if defaultRegistry != "" {
		opts = append(opts, name.WithDefaultRegistry(defaultRegistry))
	}
	tag, err := name.NewTag(raw, opts...)
	if err != nil {
		return types.ImageReference{}, fmt.Errorf("failed to parse image reference %q: %w", raw, err)
	}

	// name canonicalizes registry aliases (docker.io becomes
	// index.docker.io). Records must keep the configured registry so
	// reference lookups find them again.
	registry := tag.RegistryStr()
	if defaultRegistry != "" && registry != defaultRegistry {
		if def, defErr := name.NewRegistry(defaultRegistry); defErr == nil && def.RegistryStr() == registry {
			registry = defaultRegistry
		}
	}

	return types.ImageReference{
		Registry:   registry,
		Repository: tag.RepositoryStr(),
		Tag:        tag.TagStr(),
	}, nil
}
