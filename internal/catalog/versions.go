package catalog

import (
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/ralt/caryatid/internal/models"
)

// SortedVersions returns the versions of c in ascending semantic version
// order. If any version string is not a semantic version the document order
// is kept. The catalog itself is not modified.
func SortedVersions(c *models.Catalog) []models.Version {
	versions := make([]models.Version, len(c.Versions))
	copy(versions, c.Versions)

	parsed := make(map[string]*semver.Version, len(versions))
	for _, v := range versions {
		sv, err := semver.NewVersion(v.Version)
		if err != nil {
			return versions
		}
		parsed[v.Version] = sv
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return parsed[versions[i].Version].LessThan(parsed[versions[j].Version])
	})
	return versions
}
