package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spance/whatsmanifest-go/manifest/android"
	"github.com/spance/whatsmanifest-go/manifest/definitions"
)

type mockBridge struct {
	serial     string
	installed  bool
	version    string
	props      map[string]string
	installErr error
	versionErr error
	propsErr   error
	calls      []string
}

func (m *mockBridge) Serial() string {
	return m.serial
}

func (m *mockBridge) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	m.calls = append(m.calls, "installed")
	return m.installed, m.installErr
}

func (m *mockBridge) PackageVersionName(ctx context.Context, pkg string) (string, error) {
	m.calls = append(m.calls, "version")
	return m.version, m.versionErr
}

func (m *mockBridge) Properties(ctx context.Context) (map[string]string, error) {
	m.calls = append(m.calls, "props")
	return m.props, m.propsErr
}

type mockUtility struct {
	serial string
}

func (m *mockUtility) Serial() (string, error) { return m.serial, nil }
func (m *mockUtility) State() (string, error) { return "device", nil }
func (m *mockUtility) RunCommand(cmd string, args ...string) (string, error) { return "", nil }
func (m *mockUtility) ServerVersion() (int, error) { return 41, nil }

var testCompat = &definitions.Compatibility{
	PackageVersions: definitions.AllowList{"2.19.244", "2.19.246"},
	AndroidVersions: definitions.AllowList{"8.1.0", "9"},
	SDKLevels:       definitions.AllowList{"27", "28"},
}

func goodBridge() *mockBridge {
	return &mockBridge{
		serial:    "emulator-5554",
		installed: true,
		version:   "2.19.244",
		props: map[string]string{
			"ro.build.version.release": "9",
			"ro.build.version.sdk":     "28",
			"ro.product.model":         "Google Pixel 3",
		},
	}
}

func TestNewDeviceSucceeds(t *testing.T) {
	bridge := goodBridge()
	d, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}

	if d.Serial() != "emulator-5554" {
		t.Errorf("Serial = %q", d.Serial())
	}
	if got := d.ProductModel(context.Background()); got != "Google Pixel 3" {
		t.Errorf("ProductModel = %q", got)
	}
	if got := d.GenymotionInstanceName(context.Background()); got != "Google Pixel 3" {
		t.Errorf("GenymotionInstanceName = %q", got)
	}
	if d.ADBDevice() != bridge {
		t.Errorf("ADBDevice does not return the wrapped bridge")
	}
	if d.Automator().ADBPort != DefaultADBPort {
		t.Errorf("default automator not applied: %+v", d.Automator())
	}

	want := []string{"installed", "version", "props", "props"}
	if strings.Join(bridge.calls[:4], ",") != strings.Join(want, ",") {
		t.Errorf("checks ran out of order: %v", bridge.calls)
	}
}

func TestNewDeviceFailures(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(b *mockBridge)
		sentinel error
		message  string
	}{
		{
			name:     "package not installed",
			mutate:   func(b *mockBridge) { b.installed = false },
			sentinel: ErrPackageNotInstalled,
			message:  "The package is not installed on the device.",
		},
		{
			name:     "package version",
			mutate:   func(b *mockBridge) { b.version = "2.18.100" },
			sentinel: ErrUnsupportedPackageVersion,
			message:  "The 2.18.100 version of the package is not supported, consider switching to one of these: 2.19.244, 2.19.246",
		},
		{
			name:     "android version",
			mutate:   func(b *mockBridge) { b.props["ro.build.version.release"] = "6.0" },
			sentinel: ErrUnsupportedAndroidVersion,
			message:  "Version 6.0 is not supported by this package, consider switching to one of these: 8.1.0, 9",
		},
		{
			name:     "sdk level",
			mutate:   func(b *mockBridge) { b.props["ro.build.version.sdk"] = "23" },
			sentinel: ErrUnsupportedSDKLevel,
			message:  "SDK 23 is not supported by this package, consider switching to one of these: 27, 28",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bridge := goodBridge()
			c.mutate(bridge)

			d, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
			if d != nil {
				t.Errorf("expected nil device on failure")
			}
			if !errors.Is(err, c.sentinel) {
				t.Fatalf("got %v, want %v", err, c.sentinel)
			}
			if err.Error() != c.message {
				t.Errorf("message = %q\nwant      %q", err.Error(), c.message)
			}
			if !IsCompatibilityError(err) {
				t.Errorf("IsCompatibilityError(%v) = false", err)
			}
		})
	}
}

func TestNewDeviceStopsAtFirstFailure(t *testing.T) {
	bridge := goodBridge()
	bridge.installed = false

	_, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
	var notInstalled *PackageNotInstalledError
	if !errors.As(err, &notInstalled) {
		t.Fatalf("expected *PackageNotInstalledError, got %T", err)
	}
	if notInstalled.Package != "com.whatsapp" {
		t.Errorf("Package = %q", notInstalled.Package)
	}
	if len(bridge.calls) != 1 {
		t.Errorf("later checks ran after failure: %v", bridge.calls)
	}
}

func TestNewDeviceTypedFields(t *testing.T) {
	bridge := goodBridge()
	bridge.props["ro.build.version.sdk"] = "23"

	_, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
	var sdkErr *UnsupportedSDKLevelError
	if !errors.As(err, &sdkErr) {
		t.Fatalf("expected *UnsupportedSDKLevelError, got %T", err)
	}
	if sdkErr.Version != "23" || strings.Join(sdkErr.Supported, ",") != "27,28" {
		t.Errorf("unexpected fields: %+v", sdkErr)
	}
}

func TestNewDeviceBridgeError(t *testing.T) {
	bridge := goodBridge()
	bridge.installErr = errors.New("device offline")

	_, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
	if err == nil || IsCompatibilityError(err) {
		t.Errorf("transport failure should not be a compatibility error: %v", err)
	}
}

func TestNewDeviceUnreadableVersion(t *testing.T) {
	bridge := goodBridge()
	bridge.version = ""
	bridge.versionErr = fmt.Errorf("com.whatsapp: %w", android.ErrNoVersion)

	_, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
	var pkgErr *UnsupportedPackageVersionError
	if !errors.As(err, &pkgErr) {
		t.Fatalf("expected *UnsupportedPackageVersionError, got %v", err)
	}
	if pkgErr.Version != "" || strings.Join(pkgErr.Supported, ",") != "2.19.244,2.19.246" {
		t.Errorf("unexpected fields: %+v", pkgErr)
	}
	if !IsCompatibilityError(err) {
		t.Errorf("unreadable version should be a compatibility error")
	}
	if strings.Join(bridge.calls, ",") != "installed,version" {
		t.Errorf("later checks ran after failure: %v", bridge.calls)
	}
}

func TestNewDeviceVersionTransportError(t *testing.T) {
	bridge := goodBridge()
	bridge.versionErr = errors.New("device offline")

	_, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
	if err == nil || IsCompatibilityError(err) {
		t.Errorf("transport failure should not be a compatibility error: %v", err)
	}
}

func TestAutomatorADBAddress(t *testing.T) {
	if got := DefaultAutomator().ADBAddress(); got != "127.0.0.1:5037" {
		t.Errorf("ADBAddress = %q", got)
	}
}

func TestNewDeviceRequiresBridge(t *testing.T) {
	if _, err := NewDevice(context.Background(), nil, nil); err == nil {
		t.Errorf("expected error for nil bridge")
	}
}

func TestProductModelPropertiesError(t *testing.T) {
	bridge := goodBridge()
	d, err := NewDevice(context.Background(), bridge, nil, WithCompatibility(testCompat))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	bridge.propsErr = errors.New("closed")
	if got := d.ProductModel(context.Background()); got != "" {
		t.Errorf("ProductModel = %q, want empty", got)
	}
}

func TestADBUtilsIsCached(t *testing.T) {
	created := 0
	factory := func(ctx context.Context, serial string, a *Automator) (UtilityClient, error) {
		created++
		return &mockUtility{serial: serial}, nil
	}

	d, err := NewDevice(context.Background(), goodBridge(), nil,
		WithCompatibility(testCompat), WithUtilityFactory(factory))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}

	first, err := d.ADBUtils(context.Background())
	if err != nil {
		t.Fatalf("ADBUtils: %v", err)
	}
	second, _ := d.ADBUtils(context.Background())
	if first != second || created != 1 {
		t.Errorf("utility client created %d times", created)
	}
	if s, _ := first.Serial(); s != "emulator-5554" {
		t.Errorf("utility client serial = %q", s)
	}
}

func TestUIAutomatorIsFreshEachCall(t *testing.T) {
	created := 0
	factory := func(ctx context.Context, d *Device) (UIHandle, error) {
		created++
		return nil, errors.New("no server")
	}

	d, err := NewDevice(context.Background(), goodBridge(), nil,
		WithCompatibility(testCompat), WithUIFactory(factory))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	_, _ = d.UIAutomator(context.Background())
	_, _ = d.UIAutomator(context.Background())
	if created != 2 {
		t.Errorf("UI factory called %d times, want 2", created)
	}
}

func TestDefaultUIFactoryNeedsForwarder(t *testing.T) {
	d, err := NewDevice(context.Background(), goodBridge(), nil, WithCompatibility(testCompat))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if _, err := d.UIAutomator(context.Background()); err == nil {
		t.Errorf("expected error when bridge cannot forward")
	}
}

func TestReport(t *testing.T) {
	d, err := NewDevice(context.Background(), goodBridge(), nil, WithCompatibility(testCompat))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	r, err := d.Report(context.Background())
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r.PackageVersion != "2.19.244" || r.AndroidVersion != "9" || r.SDKLevel != "28" || r.Model != "Google Pixel 3" {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestNewDeviceEmbeddedTables(t *testing.T) {
	bridge := goodBridge()
	if _, err := NewDevice(context.Background(), bridge, nil); err != nil {
		t.Errorf("embedded tables should accept 2.19.244 / 9 / 28: %v", err)
	}
}
