package definitions

import (
	"strings"

	"github.com/samber/lo"
)

// AllowList is an ordered set of supported version patterns. A pattern is
// either an exact version or a prefix ending in "*" ("2.19.*", "8.*").
type AllowList []string

// Matches reports whether version is covered by any pattern.
func (l AllowList) Matches(version string) bool {
	version = strings.TrimSpace(version)
	if version == "" {
		return false
	}
	return lo.ContainsBy(l, func(pattern string) bool {
		pattern = strings.TrimSpace(pattern)
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			return strings.HasPrefix(version, prefix)
		}
		return pattern == version
	})
}

// Strings returns the patterns as display strings.
func (l AllowList) Strings() []string {
	return lo.Compact(lo.Map(l, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}

// ParseAllowList splits a comma separated list, dropping empty entries.
func ParseAllowList(s string) AllowList {
	return AllowList(lo.Compact(lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})))
}

type Compatibility struct {
	PackageVersions AllowList `json:"package_versions"`
	AndroidVersions AllowList `json:"android_versions"`
	SDKLevels       AllowList `json:"sdk_levels"`
}

func (c *Compatibility) PackageVersionSupported(version string) bool {
	return c.PackageVersions.Matches(version)
}

func (c *Compatibility) AndroidVersionSupported(version string) bool {
	return c.AndroidVersions.Matches(version)
}

func (c *Compatibility) SDKLevelSupported(level string) bool {
	return c.SDKLevels.Matches(level)
}

func (c *Compatibility) Clone() *Compatibility {
	return &Compatibility{
		PackageVersions: append(AllowList(nil), c.PackageVersions...),
		AndroidVersions: append(AllowList(nil), c.AndroidVersions...),
		SDKLevels:       append(AllowList(nil), c.SDKLevels...),
	}
}

// Override returns a copy with every non-empty replacement applied.
func (c *Compatibility) Override(packageVersions, androidVersions, sdkLevels AllowList) *Compatibility {
	out := c.Clone()
	if len(packageVersions) > 0 {
		out.PackageVersions = packageVersions
	}
	if len(androidVersions) > 0 {
		out.AndroidVersions = androidVersions
	}
	if len(sdkLevels) > 0 {
		out.SDKLevels = sdkLevels
	}
	return out
}
