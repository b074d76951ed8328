package versions

import "strings"

// BuildTag returns the git tag for version. Only the first placeholder in the
// transform is substituted.
func BuildTag(t TagTransform, version Version) string {
	if t == "" {
		return string(version)
	}
	return strings.Replace(string(t), TagPlaceholder, string(version), 1)
}
