package constants

import (
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	PackageNotInstalledTemplate       = `The package is not installed on the device.`
	UnsupportedPackageVersionTemplate = `The {version} version of the package is not supported, consider switching to one of these: {supported}`
	UnsupportedAndroidVersionTemplate = `Version {version} is not supported by this package, consider switching to one of these: {supported}`
	UnsupportedSDKLevelTemplate       = `SDK {version} is not supported by this package, consider switching to one of these: {supported}`
)

// RenderMessage fills a failure template with the offending version and the
// list of supported alternatives.
func RenderMessage(template, version string, supported []string) string {
	return fasttemplate.ExecuteString(template, "{", "}", map[string]interface{}{
		"version":   version,
		"supported": strings.Join(supported, ", "),
	})
}
