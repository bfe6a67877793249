package definitions

import "strings"

type ConnectionType string

const (
	USB    ConnectionType = "usb"
	Remote ConnectionType = "remote"
)

// ConnectionTypeOf classifies a serial as reported by the adb server.
func ConnectionTypeOf(serial string) ConnectionType {
	if strings.Contains(serial, ":") {
		return Remote
	}
	return USB
}

type DeviceInfo struct {
	DeviceID       string         `json:"device_id"`
	Status         string         `json:"status"`
	ConnectionType ConnectionType `json:"connection_type"`
	Model          string         `json:"model,omitempty"`
	Product        string         `json:"product,omitempty"`
	AndroidVersion string         `json:"android_version,omitempty"`
	SDKLevel       string         `json:"sdk_level,omitempty"`
}

// Report is what a successful compatibility gate yields for a device.
type Report struct {
	Serial         string `json:"serial"`
	Model          string `json:"model"`
	Package        string `json:"package"`
	PackageVersion string `json:"package_version"`
	AndroidVersion string `json:"android_version"`
	SDKLevel       string `json:"sdk_level"`
}
