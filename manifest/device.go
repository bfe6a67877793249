package manifest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spance/whatsmanifest-go/constants"
	"github.com/spance/whatsmanifest-go/manifest/android"
	"github.com/spance/whatsmanifest-go/manifest/definitions"
	"github.com/spance/whatsmanifest-go/manifest/uiautomator"
)

// Device is an Android device that has passed the compatibility gate for
// the target package. It hands out the ADB connection, UI automation and
// adb utility handles bound to it.
type Device struct {
	adbDevice Bridge
	automator *Automator
	compat    *definitions.Compatibility
	phone     *Phone

	newUI    UIFactory
	newUtils UtilityFactory

	mu       sync.Mutex
	adbUtils UtilityClient
}

type Option func(*Device)

// WithCompatibility replaces the embedded compatibility tables.
func WithCompatibility(c *definitions.Compatibility) Option {
	return func(d *Device) {
		if c != nil {
			d.compat = c
		}
	}
}

func WithUIFactory(f UIFactory) Option {
	return func(d *Device) {
		if f != nil {
			d.newUI = f
		}
	}
}

func WithUtilityFactory(f UtilityFactory) Option {
	return func(d *Device) {
		if f != nil {
			d.newUtils = f
		}
	}
}

// NewDevice wraps bridge and runs the compatibility gate. The first failing
// check is returned and the remaining ones are skipped.
func NewDevice(ctx context.Context, bridge Bridge, automator *Automator, opts ...Option) (*Device, error) {
	if bridge == nil {
		return nil, fmt.Errorf("adb device is required")
	}
	if automator == nil {
		automator = DefaultAutomator()
	}

	d := &Device{
		adbDevice: bridge,
		automator: automator,
		phone:     NewPhone(bridge),
		newUI:     defaultUIFactory,
		newUtils:  defaultUtilityFactory,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.compat == nil {
		c, err := constants.Load()
		if err != nil {
			return nil, err
		}
		d.compat = c
	}

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"package_installed", d.PackageInstalled},
		{"package_version", d.PackageVersionValidate},
		{"android_version", d.CheckupPhoneVersion},
		{"sdk_level", d.CheckupSDKLevel},
	}
	for _, c := range checks {
		if err := c.fn(ctx); err != nil {
			log.Debug().Str("serial", bridge.Serial()).Str("check", c.name).Err(err).Msg("compatibility check failed")
			return nil, err
		}
		log.Debug().Str("serial", bridge.Serial()).Str("check", c.name).Msg("compatibility check passed")
	}

	return d, nil
}

// PackageInstalled checks whether the target package is on the device.
func (d *Device) PackageInstalled(ctx context.Context) error {
	installed, err := d.adbDevice.IsInstalled(ctx, constants.PackageName)
	if err != nil {
		return fmt.Errorf("failed to query package %s: %w", constants.PackageName, err)
	}
	if !installed {
		return &PackageNotInstalledError{Package: constants.PackageName}
	}
	return nil
}

// PackageVersionValidate checks the installed package version against the
// supported versions. A version the device does not report is unsupported.
func (d *Device) PackageVersionValidate(ctx context.Context) error {
	version, err := d.adbDevice.PackageVersionName(ctx, constants.PackageName)
	if errors.Is(err, android.ErrNoVersion) {
		return &UnsupportedPackageVersionError{Version: "", Supported: d.compat.PackageVersions.Strings()}
	}
	if err != nil {
		return fmt.Errorf("failed to read version of %s: %w", constants.PackageName, err)
	}
	if !d.compat.PackageVersionSupported(version) {
		return &UnsupportedPackageVersionError{Version: version, Supported: d.compat.PackageVersions.Strings()}
	}
	return nil
}

// CheckupPhoneVersion checks the Android release of the device.
func (d *Device) CheckupPhoneVersion(ctx context.Context) error {
	version, err := d.phone.PhoneVersion(ctx)
	if err != nil {
		return err
	}
	if !d.compat.AndroidVersionSupported(version) {
		return &UnsupportedAndroidVersionError{Version: version, Supported: d.compat.AndroidVersions.Strings()}
	}
	return nil
}

// CheckupSDKLevel checks the API level of the device.
func (d *Device) CheckupSDKLevel(ctx context.Context) error {
	level, err := d.phone.SDKVersion(ctx)
	if err != nil {
		return err
	}
	if !d.compat.SDKLevelSupported(level) {
		return &UnsupportedSDKLevelError{Version: level, Supported: d.compat.SDKLevels.Strings()}
	}
	return nil
}

func (d *Device) ADBDevice() Bridge {
	return d.adbDevice
}

func (d *Device) Automator() *Automator {
	return d.automator
}

func (d *Device) Phone() *Phone {
	return d.phone
}

func (d *Device) Compatibility() *definitions.Compatibility {
	return d.compat
}

// UIAutomator opens a new UI automation handle. Every call builds a fresh
// handle, callers own it and must Close it.
func (d *Device) UIAutomator(ctx context.Context) (UIHandle, error) {
	log.Debug().Str("serial", d.Serial()).Msg("Starting UI Automator")
	return d.newUI(ctx, d)
}

// ADBUtils returns the adb utility client for this device, creating it on
// first use.
func (d *Device) ADBUtils(ctx context.Context) (UtilityClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.adbUtils == nil {
		log.Debug().Str("serial", d.Serial()).Str("adb", d.automator.ADBAddress()).Msg("Starting ADB utility tools")
		c, err := d.newUtils(ctx, d.Serial(), d.automator)
		if err != nil {
			return nil, err
		}
		d.adbUtils = c
	}
	return d.adbUtils, nil
}

func (d *Device) Serial() string {
	return d.adbDevice.Serial()
}

// ProductModel returns ro.product.model, or "" when it cannot be read.
func (d *Device) ProductModel(ctx context.Context) string {
	props, err := d.adbDevice.Properties(ctx)
	if err != nil {
		log.Warn().Str("serial", d.Serial()).Err(err).Msg("failed to read device properties")
		return ""
	}
	return props[propProductModel]
}

// GenymotionInstanceName is the product model, which Genymotion sets to
// the instance name.
func (d *Device) GenymotionInstanceName(ctx context.Context) string {
	return d.ProductModel(ctx)
}

// Report collects the facts the gate checked.
func (d *Device) Report(ctx context.Context) (*definitions.Report, error) {
	props, err := d.adbDevice.Properties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read device properties: %w", err)
	}
	version, err := d.adbDevice.PackageVersionName(ctx, constants.PackageName)
	if err != nil {
		return nil, fmt.Errorf("failed to read version of %s: %w", constants.PackageName, err)
	}
	return &definitions.Report{
		Serial:         d.Serial(),
		Model:          props[propProductModel],
		Package:        constants.PackageName,
		PackageVersion: version,
		AndroidVersion: props[propAndroidRelease],
		SDKLevel:       props[propSDKLevel],
	}, nil
}

func defaultUIFactory(ctx context.Context, d *Device) (UIHandle, error) {
	fwd, ok := d.adbDevice.(Forwarder)
	if !ok {
		return nil, fmt.Errorf("adb device %s cannot forward ports", d.Serial())
	}
	h, err := uiautomator.Open(ctx, fwd, d.automator.UIALocalPort, d.automator.UIARemotePort)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func defaultUtilityFactory(ctx context.Context, serial string, automator *Automator) (UtilityClient, error) {
	c, err := android.NewUtilityClient(automator.ADBHost, automator.ADBPort, serial)
	if err != nil {
		return nil, err
	}
	return c, nil
}
