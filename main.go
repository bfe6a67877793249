package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spance/whatsmanifest-go/constants"
	"github.com/spance/whatsmanifest-go/manifest"
	"github.com/spance/whatsmanifest-go/manifest/android"
	"github.com/spance/whatsmanifest-go/manifest/apk"
	"github.com/spance/whatsmanifest-go/manifest/definitions"
	"github.com/spance/whatsmanifest-go/utils"
	"github.com/spf13/cobra"
)

const (
	exitOK           = 0
	exitError        = 1
	exitIncompatible = 2
)

// Config holds all the configuration values from command line arguments
type Config struct {
	DeviceID      string `json:"device_id"`
	ADBHost       string `json:"adb_host"`
	ADBPort       int    `json:"adb_port"`
	UIALocalPort  int    `json:"uia_local_port"`
	UIARemotePort int    `json:"uia_remote_port"`
	Timeout       int    `json:"timeout"`

	Connect       string `json:"connect"`
	Disconnect    string `json:"disconnect"`
	ListDevices   bool   `json:"list_devices"`
	DeviceInfo    bool   `json:"device_info"`
	EnableTCPIP   int    `json:"enable_tcpip"`
	GetDeviceIP   string `json:"get_device_ip"`
	ListSupported bool   `json:"list_supported"`
	CheckAPK      string `json:"check_apk"`
	Launch        bool   `json:"launch"`
	Restart       bool   `json:"restart"`
	ProbeHandles  bool   `json:"probe_handles"`

	PackageVersions string `json:"package_versions"`
	AndroidVersions string `json:"android_versions"`
	SDKLevels       string `json:"sdk_levels"`

	JSON  bool `json:"json"`
	Quiet bool `json:"quiet"`
	Debug bool `json:"debug"`
}

var config = &Config{}

var rootCmd = &cobra.Command{
	Use:   "whatsmanifest",
	Short: "WhatsApp Manifest - device compatibility gate",
	Long: `WhatsApp Manifest checks that an Android device reachable over ADB can be
automated: the WhatsApp package must be installed, and the package version,
Android release and SDK level must all be in the supported lists.`,
	Example: `  # Check the first online device
  whatsmanifest

  # Check a specific device and print JSON
  whatsmanifest --device-id emulator-5554 --json

  # Use a remote adb server
  whatsmanifest --adb-host 10.0.0.2 --adb-port 5037

  # Connect to a device over TCP/IP first
  whatsmanifest --connect 192.168.1.100:5555

  # List connected devices
  whatsmanifest --list-devices

  # Switch a USB device to TCP/IP and find its address
  whatsmanifest --enable-tcpip 5555 --device-id R58M123456
  whatsmanifest --get-device-ip R58M123456

  # Show the supported versions
  whatsmanifest --list-supported

  # Validate an APK before installing it
  whatsmanifest --check-apk WhatsApp.apk

  # Accept an extra SDK level for this run
  whatsmanifest --sdk-levels 24,25,26,27,28,29`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: validateArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(run(cmd.Context()))
	},
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func init() {
	// Device options
	rootCmd.PersistentFlags().StringVarP(&config.DeviceID, "device-id", "d",
		getEnv("WA_MANIFEST_DEVICE_ID", ""),
		"ADB device serial (default: first online device)")

	rootCmd.PersistentFlags().StringVar(&config.ADBHost, "adb-host",
		getEnv("WA_MANIFEST_ADB_HOST", manifest.DefaultADBHost),
		"ADB server host")

	rootCmd.PersistentFlags().IntVar(&config.ADBPort, "adb-port",
		getEnvInt("WA_MANIFEST_ADB_PORT", manifest.DefaultADBPort),
		"ADB server port")

	rootCmd.PersistentFlags().IntVar(&config.UIALocalPort, "uia-port",
		getEnvInt("WA_MANIFEST_UIA_PORT", manifest.DefaultUIALocalPort),
		"Host port forwarded to the UIAutomator2 server")

	rootCmd.PersistentFlags().IntVar(&config.UIARemotePort, "uia-remote-port",
		getEnvInt("WA_MANIFEST_UIA_REMOTE_PORT", manifest.DefaultUIARemotePort),
		"Device port the UIAutomator2 server listens on")

	rootCmd.PersistentFlags().IntVar(&config.Timeout, "timeout",
		getEnvInt("WA_MANIFEST_TIMEOUT", 30),
		"Timeout in seconds for device commands")

	rootCmd.PersistentFlags().StringVarP(&config.Connect, "connect", "c", "",
		"Connect to remote device (e.g., 192.168.1.100:5555)")

	rootCmd.PersistentFlags().StringVar(&config.Disconnect, "disconnect", "",
		"Disconnect from remote device (or 'all' to disconnect all)")

	rootCmd.PersistentFlags().BoolVar(&config.ListDevices, "list-devices", false,
		"List connected devices and exit")

	rootCmd.PersistentFlags().BoolVar(&config.DeviceInfo, "device-info", false,
		"Print model, product and Android version of the device and exit")

	rootCmd.PersistentFlags().IntVar(&config.EnableTCPIP, "enable-tcpip", 0,
		"Enable TCP/IP debugging on the USB device on this port (e.g., 5555) and exit")

	rootCmd.PersistentFlags().StringVar(&config.GetDeviceIP, "get-device-ip", "",
		"Print the IP address of the device with this serial and exit")

	// Compatibility options
	rootCmd.PersistentFlags().BoolVar(&config.ListSupported, "list-supported", false,
		"List supported package versions, Android versions and SDK levels and exit")

	rootCmd.PersistentFlags().StringVar(&config.CheckAPK, "check-apk", "",
		"Check an APK file against the supported package versions and exit")

	rootCmd.PersistentFlags().StringVar(&config.PackageVersions, "package-versions",
		getEnv("WA_MANIFEST_PACKAGE_VERSIONS", ""),
		"Comma separated supported package versions (overrides built-in list)")

	rootCmd.PersistentFlags().StringVar(&config.AndroidVersions, "android-versions",
		getEnv("WA_MANIFEST_ANDROID_VERSIONS", ""),
		"Comma separated supported Android versions (overrides built-in list)")

	rootCmd.PersistentFlags().StringVar(&config.SDKLevels, "sdk-levels",
		getEnv("WA_MANIFEST_SDK_LEVELS", ""),
		"Comma separated supported SDK levels (overrides built-in list)")

	// Actions after a passing check
	rootCmd.PersistentFlags().BoolVar(&config.Launch, "launch", false,
		"Launch WhatsApp after the device passes the check")

	rootCmd.PersistentFlags().BoolVar(&config.Restart, "restart", false,
		"Force-stop WhatsApp before launching it (with --launch)")

	rootCmd.PersistentFlags().BoolVar(&config.ProbeHandles, "probe-handles", false,
		"Open the UI automation and adb utility handles after the check")

	// Other options
	rootCmd.PersistentFlags().BoolVar(&config.JSON, "json", false,
		"Print results as JSON")

	rootCmd.PersistentFlags().BoolVarP(&config.Quiet, "quiet", "q", false,
		"Suppress verbose output")

	rootCmd.PersistentFlags().BoolVar(&config.Debug, "debug", false,
		"Enable debug mode (default: false)")
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if config.ADBPort <= 0 || config.ADBPort > 65535 {
		return fmt.Errorf("invalid adb port: %d", config.ADBPort)
	}
	if config.UIALocalPort <= 0 || config.UIALocalPort > 65535 {
		return fmt.Errorf("invalid uia port: %d", config.UIALocalPort)
	}
	if config.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %d", config.Timeout)
	}
	return nil
}

func setupLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.Quiet {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := log.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	log.Logger = logger.With().Str("run", uuid.NewString()).Logger()
}

func run(ctx context.Context) int {
	setupLogger()
	if ctx == nil {
		ctx = context.Background()
	}

	compat, err := loadCompatibility()
	if err != nil {
		log.Error().Err(err).Msg("loading compatibility tables failed")
		return exitError
	}

	// Handle --list-supported (no device needed)
	if config.ListSupported {
		printSupported(compat)
		return exitOK
	}

	// Handle --check-apk (no device needed)
	if config.CheckAPK != "" {
		return checkAPK(config.CheckAPK, compat)
	}

	manager, err := android.NewDeviceManager(config.ADBHost, config.ADBPort)
	if err != nil {
		log.Error().Err(err).Msg("creating device manager failed")
		return exitError
	}

	if hitCmd, code := handleDeviceCommands(ctx, manager); hitCmd {
		return code
	}

	if passed := checkSystemRequirements(ctx, manager); !passed {
		log.Error().Msg("❌ System check failed. Please fix the issues above.")
		return exitError
	}

	cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Timeout)*time.Second)
	defer cancel()

	bridge, err := manager.Device(cmdCtx, config.DeviceID)
	if err != nil {
		log.Error().Err(err).Str("device", config.DeviceID).Msg("resolving device failed")
		return exitError
	}

	automator := &manifest.Automator{
		ADBHost:       config.ADBHost,
		ADBPort:       config.ADBPort,
		UIALocalPort:  config.UIALocalPort,
		UIARemotePort: config.UIARemotePort,
	}

	log.Info().Str("serial", bridge.Serial()).Msg("🔍 Checking device compatibility...")
	device, err := manifest.NewDevice(cmdCtx, bridge, automator, manifest.WithCompatibility(compat))
	if err != nil {
		if manifest.IsCompatibilityError(err) {
			log.Error().Str("serial", bridge.Serial()).Msgf("❌ %s", err.Error())
			printFailure(bridge.Serial(), err)
			return exitIncompatible
		}
		log.Error().Err(err).Str("serial", bridge.Serial()).Msg("compatibility check could not run")
		return exitError
	}
	log.Info().Str("serial", device.Serial()).Msg("✅ Device is compatible")

	report, err := device.Report(cmdCtx)
	if err != nil {
		log.Error().Err(err).Msg("collecting device report failed")
		return exitError
	}
	log.Debug().Str("report", utils.JsonString(report)).Msg("device report")
	printReport(report)

	if config.ProbeHandles {
		if !probeHandles(cmdCtx, device) {
			return exitError
		}
	}

	if config.Launch {
		if config.Restart {
			log.Info().Str("package", constants.PackageName).Msg("Stopping app...")
			if err := bridge.ForceStop(cmdCtx, constants.PackageName); err != nil {
				log.Error().Err(err).Msg("❌ force-stop failed")
				return exitError
			}
		}
		log.Info().Str("package", constants.PackageName).Msg("Launching app...")
		if err := bridge.LaunchApp(cmdCtx, constants.PackageName); err != nil {
			log.Error().Err(err).Msg("❌ launch failed")
			return exitError
		}
		current, err := bridge.CurrentPackage(cmdCtx)
		if err != nil {
			log.Warn().Err(err).Msg("reading focused app failed")
		} else {
			log.Info().Str("focused", current).Msg("✅ launched")
		}
	}

	return exitOK
}

func loadCompatibility() (*definitions.Compatibility, error) {
	compat, err := constants.Load()
	if err != nil {
		return nil, err
	}
	return compat.Override(
		definitions.ParseAllowList(config.PackageVersions),
		definitions.ParseAllowList(config.AndroidVersions),
		definitions.ParseAllowList(config.SDKLevels),
	), nil
}

// deviceCommander is the part of android.DeviceManager the device management
// flags drive.
type deviceCommander interface {
	ListDevices(ctx context.Context) ([]definitions.DeviceInfo, error)
	GetDeviceInfo(ctx context.Context, serial string) (*definitions.DeviceInfo, error)
	Connect(ctx context.Context, address string) (string, error)
	IsConnected(ctx context.Context, serial string) bool
	EnableTCPIP(ctx context.Context, port int, serial string) error
	GetDeviceIP(ctx context.Context, serial string) (string, error)
	Disconnect(ctx context.Context, address string) (string, error)
}

// handleDeviceCommands runs the device management flags. It reports whether
// one of them was given and the exit code to use.
func handleDeviceCommands(ctx context.Context, manager deviceCommander) (bool, int) {
	// 处理 --list-devices
	if config.ListDevices {
		devices, err := manager.ListDevices(ctx)
		if err != nil {
			log.Error().Err(err).Msg("❌ listing devices failed")
			return true, exitError
		}
		if config.JSON {
			_ = utils.WriteJSON(os.Stdout, devices)
			return true, exitOK
		}
		if len(devices) == 0 {
			log.Info().Msg("No devices connected.")
			return true, exitOK
		}
		log.Info().Msg("Connected devices:")
		log.Info().Msg(strings.Repeat("-", 60))
		for _, d := range devices {
			statusIcon := "✅"
			if d.Status != "device" {
				statusIcon = "❌"
			}
			modelInfo := ""
			if d.Model != "" {
				modelInfo = fmt.Sprintf(" (%s)", d.Model)
			}
			log.Info().Str("device", fmt.Sprintf("  %s %-30s [%s]%s", statusIcon, d.DeviceID, d.ConnectionType, modelInfo)).Msg("")
		}
		return true, exitOK
	}

	// 处理 --device-info
	if config.DeviceInfo {
		info, err := manager.GetDeviceInfo(ctx, config.DeviceID)
		if err != nil {
			log.Error().Err(err).Msg("❌ reading device info failed")
			return true, exitError
		}
		if config.JSON {
			_ = utils.WriteJSON(os.Stdout, info)
			return true, exitOK
		}
		utils.WriteTable(os.Stdout, "Device Information", []utils.Row{
			{Property: "Serial", Value: info.DeviceID},
			{Property: "Connection", Value: string(info.ConnectionType)},
			{Property: "Model", Value: info.Model},
			{Property: "Product", Value: info.Product},
			{Property: "Android Version", Value: info.AndroidVersion},
			{Property: "SDK Level", Value: info.SDKLevel},
		})
		return true, exitOK
	}

	// 处理 --connect
	if config.Connect != "" {
		log.Info().Msgf("Connecting to %s...", config.Connect)
		message, err := manager.Connect(ctx, config.Connect)
		if err != nil {
			log.Error().Str("msg", message).Msg("❌")
			return true, exitError
		}
		log.Info().Str("msg", message).Msg("✅")
		if !manager.IsConnected(ctx, config.Connect) {
			log.Warn().Str("address", config.Connect).Msg("device is not online yet, it may need to be authorized")
		}
		return true, exitOK
	}

	// 处理 --enable-tcpip
	if config.EnableTCPIP > 0 {
		port := config.EnableTCPIP
		log.Info().Msgf("Enabling TCP/IP debugging on port %d...", port)

		if err := manager.EnableTCPIP(ctx, port, config.DeviceID); err != nil {
			log.Error().Err(err).Msg("❌ enable tcpip failed")
			return true, exitError
		}
		log.Info().Msg("✅ enable tcpip success")
		return true, exitOK
	}

	// 处理 --get-device-ip
	if config.GetDeviceIP != "" {
		ip, err := manager.GetDeviceIP(ctx, config.GetDeviceIP)
		if err != nil {
			log.Error().Err(err).Msg("❌ get device ip failed")
			return true, exitError
		}
		if ip == "" {
			log.Error().Msg("❌ device has no ip address")
			return true, exitError
		}
		log.Info().Msgf("✅ device ip: %s", ip)
		return true, exitOK
	}

	// 处理 --disconnect
	if config.Disconnect != "" {
		address := config.Disconnect
		if address == "all" {
			log.Info().Msg("Disconnecting all remote devices...")
			address = ""
		} else {
			log.Info().Msgf("Disconnecting from %s...", address)
		}
		message, err := manager.Disconnect(ctx, address)
		if err != nil {
			log.Error().Msgf("❌ %s", message)
			return true, exitError
		}
		log.Info().Msgf("✅ %s", message)
		return true, exitOK
	}

	return false, exitOK
}

func checkSystemRequirements(ctx context.Context, manager *android.DeviceManager) bool {
	log.Info().Msg("🔍 Checking system requirements...")
	log.Info().Msg(strings.Repeat("-", 50))

	// Check 1: adb server reachable
	log.Info().Msgf("1. Checking ADB server at %s:%d... ", config.ADBHost, config.ADBPort)
	version, err := manager.ServerVersion(ctx)
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: %v", err)
		log.Info().Msg("   Solution: start the server with `adb start-server`")
		return false
	}
	log.Info().Msgf("✅ OK (server version %d)", version)

	// Check 2: device connected
	log.Info().Msg("2. Checking connected devices... ")
	devices, err := manager.ListDevices(ctx)
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: %v", err)
		return false
	}
	online := lo.Filter(devices, func(d definitions.DeviceInfo, _ int) bool {
		return d.Status == "device"
	})
	if len(online) == 0 {
		log.Error().Msg("❌ FAILED")
		log.Info().Msg("   Error: No devices connected.")
		log.Info().Msg("   Solution:")
		log.Info().Msg("     1. Enable USB debugging on your Android device")
		log.Info().Msg("     2. Connect via USB and authorize the connection")
		log.Info().Msg("     3. Or connect remotely: whatsmanifest --connect <ip>:<port>")
		return false
	}
	ids := lo.Map(online, func(d definitions.DeviceInfo, _ int) string { return d.DeviceID })
	if len(ids) > 2 {
		ids = append(ids[:2], "...")
	}
	log.Info().Msgf("✅ OK (%d device(s): %s)", len(online), strings.Join(ids, ", "))

	log.Info().Msg(strings.Repeat("-", 50))
	return true
}

func probeHandles(ctx context.Context, device *manifest.Device) bool {
	utilsClient, err := device.ADBUtils(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ adb utility client failed")
		return false
	}
	state, err := utilsClient.State()
	if err != nil {
		log.Error().Err(err).Msg("❌ adb utility client state failed")
		return false
	}
	log.Info().Str("state", state).Msg("✅ adb utility client ready")

	ui, err := device.UIAutomator(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ ui automator failed")
		return false
	}
	defer ui.Close()

	size, err := ui.DisplaySize()
	if err != nil {
		log.Error().Err(err).Msg("❌ ui automator not responding")
		return false
	}
	log.Info().Str("display", size).Msg("✅ ui automator ready")
	return true
}

func checkAPK(path string, compat *definitions.Compatibility) int {
	info, err := apk.Inspect(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("❌ reading apk failed")
		return exitError
	}
	checkErr := apk.Check(info, compat)

	if config.JSON {
		out := map[string]any{"apk": info, "supported": checkErr == nil}
		if checkErr != nil {
			out["error"] = checkErr.Error()
		}
		_ = utils.WriteJSON(os.Stdout, out)
	} else {
		utils.WriteTable(os.Stdout, "APK Information", []utils.Row{
			{Property: "Path", Value: info.Path},
			{Property: "Package", Value: info.PackageName},
			{Property: "Version", Value: info.VersionName},
			{Property: "Main Activity", Value: info.MainActivity},
		})
	}

	if checkErr != nil {
		log.Error().Msgf("❌ %s", checkErr.Error())
		return exitIncompatible
	}
	log.Info().Msg("✅ APK is supported")
	return exitOK
}

func printSupported(compat *definitions.Compatibility) {
	if config.JSON {
		_ = utils.WriteJSON(os.Stdout, compat)
		return
	}
	sorted := func(l definitions.AllowList) string {
		s := l.Strings()
		sort.Strings(s)
		return strings.Join(s, ", ")
	}
	utils.WriteTable(os.Stdout, "Supported Versions", []utils.Row{
		{Property: "Package", Value: constants.PackageName},
		{Property: "Package Versions", Value: sorted(compat.PackageVersions)},
		{Property: "Android Versions", Value: sorted(compat.AndroidVersions)},
		{Property: "SDK Levels", Value: sorted(compat.SDKLevels)},
	})
}

func printReport(report *definitions.Report) {
	if config.JSON {
		_ = utils.WriteJSON(os.Stdout, map[string]any{"compatible": true, "device": report})
		return
	}
	utils.WriteTable(os.Stdout, "Device Information", []utils.Row{
		{Property: "Serial", Value: report.Serial},
		{Property: "Model", Value: report.Model},
		{Property: "Package", Value: report.Package},
		{Property: "Package Version", Value: report.PackageVersion},
		{Property: "Android Version", Value: report.AndroidVersion},
		{Property: "SDK Level", Value: report.SDKLevel},
	})
}

func printFailure(serial string, err error) {
	if !config.JSON {
		return
	}
	out := map[string]any{"compatible": false, "serial": serial, "error": err.Error()}

	var (
		pkgErr     *manifest.UnsupportedPackageVersionError
		androidErr *manifest.UnsupportedAndroidVersionError
		sdkErr     *manifest.UnsupportedSDKLevelError
	)
	switch {
	case errors.Is(err, manifest.ErrPackageNotInstalled):
		out["check"] = "package_installed"
	case errors.As(err, &pkgErr):
		out["check"], out["version"], out["supported"] = "package_version", pkgErr.Version, pkgErr.Supported
	case errors.As(err, &androidErr):
		out["check"], out["version"], out["supported"] = "android_version", androidErr.Version, androidErr.Supported
	case errors.As(err, &sdkErr):
		out["check"], out["version"], out["supported"] = "sdk_level", sdkErr.Version, sdkErr.Supported
	}
	_ = utils.WriteJSON(os.Stdout, out)
}
