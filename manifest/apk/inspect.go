package apk

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	androidapk "github.com/shogo82148/androidbinary/apk"
	"github.com/spance/whatsmanifest-go/constants"
	"github.com/spance/whatsmanifest-go/manifest"
	"github.com/spance/whatsmanifest-go/manifest/definitions"
)

// Info is what the gate needs to know about an APK file.
type Info struct {
	Path         string `json:"path"`
	PackageName  string `json:"package_name"`
	VersionName  string `json:"version_name"`
	MainActivity string `json:"main_activity,omitempty"`
}

// Inspect reads package name, version and launcher activity from an APK.
func Inspect(path string) (*Info, error) {
	pkg, err := androidapk.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "apk parse")
	}
	defer pkg.Close()

	version, err := pkg.Manifest().VersionName.String()
	if err != nil {
		return nil, errors.Wrap(err, "apk versionName")
	}
	mainActivity, err := pkg.MainActivity()
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("apk has no main activity")
	}

	return &Info{
		Path:         path,
		PackageName:  pkg.PackageName(),
		VersionName:  version,
		MainActivity: mainActivity,
	}, nil
}

// Check applies the package side of the compatibility gate to an APK before
// it is installed.
func Check(info *Info, compat *definitions.Compatibility) error {
	if info.PackageName != constants.PackageName {
		return &manifest.PackageNotInstalledError{Package: constants.PackageName}
	}
	if !compat.PackageVersionSupported(info.VersionName) {
		return &manifest.UnsupportedPackageVersionError{
			Version:   info.VersionName,
			Supported: compat.PackageVersions.Strings(),
		}
	}
	return nil
}
