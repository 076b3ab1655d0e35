package types

import "fmt"

// ImageReference is a fully resolved image reference. Registry is never
// empty; callers fill in the default registry while parsing.
type ImageReference struct {
	Registry   string `json:"registry"`
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
}

// Name returns the registry/repository:tag form used on tool command lines.
func (r ImageReference) Name() string {
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}
