package manifest

import (
	"errors"

	"github.com/spance/whatsmanifest-go/constants"
)

var (
	ErrPackageNotInstalled       = errors.New("package not installed")
	ErrUnsupportedPackageVersion = errors.New("unsupported package version")
	ErrUnsupportedAndroidVersion = errors.New("unsupported android version")
	ErrUnsupportedSDKLevel       = errors.New("unsupported sdk level")
)

// PackageNotInstalledError is returned when the target package is absent
// from the device.
type PackageNotInstalledError struct {
	Package string
}

func (e *PackageNotInstalledError) Error() string {
	return constants.PackageNotInstalledTemplate
}

func (e *PackageNotInstalledError) Is(target error) bool {
	return target == ErrPackageNotInstalled
}

// UnsupportedPackageVersionError is returned when the installed package
// version is not in the allow list.
type UnsupportedPackageVersionError struct {
	Version   string
	Supported []string
}

func (e *UnsupportedPackageVersionError) Error() string {
	return constants.RenderMessage(constants.UnsupportedPackageVersionTemplate, e.Version, e.Supported)
}

func (e *UnsupportedPackageVersionError) Is(target error) bool {
	return target == ErrUnsupportedPackageVersion
}

// UnsupportedAndroidVersionError is returned when ro.build.version.release
// is not in the allow list.
type UnsupportedAndroidVersionError struct {
	Version   string
	Supported []string
}

func (e *UnsupportedAndroidVersionError) Error() string {
	return constants.RenderMessage(constants.UnsupportedAndroidVersionTemplate, e.Version, e.Supported)
}

func (e *UnsupportedAndroidVersionError) Is(target error) bool {
	return target == ErrUnsupportedAndroidVersion
}

// UnsupportedSDKLevelError is returned when ro.build.version.sdk is not in
// the allow list.
type UnsupportedSDKLevelError struct {
	Version   string
	Supported []string
}

func (e *UnsupportedSDKLevelError) Error() string {
	return constants.RenderMessage(constants.UnsupportedSDKLevelTemplate, e.Version, e.Supported)
}

func (e *UnsupportedSDKLevelError) Is(target error) bool {
	return target == ErrUnsupportedSDKLevel
}

// IsCompatibilityError reports whether err is one of the four gate failures.
func IsCompatibilityError(err error) bool {
	return errors.Is(err, ErrPackageNotInstalled) ||
		errors.Is(err, ErrUnsupportedPackageVersion) ||
		errors.Is(err, ErrUnsupportedAndroidVersion) ||
		errors.Is(err, ErrUnsupportedSDKLevel)
}
