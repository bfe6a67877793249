package manifest

import "fmt"

const (
	DefaultADBHost = "127.0.0.1"
	DefaultADBPort = 5037

	// DefaultUIALocalPort is the host side of the UIAutomator2 forward.
	DefaultUIALocalPort = 8200
	// DefaultUIARemotePort is where the UIAutomator2 server listens on the device.
	DefaultUIARemotePort = 6790
)

// Automator carries the adb server endpoint and the UI automation ports
// every handle of a Device is built against.
type Automator struct {
	ADBHost       string `json:"adb_host"`
	ADBPort       int    `json:"adb_port"`
	UIALocalPort  int    `json:"uia_local_port"`
	UIARemotePort int    `json:"uia_remote_port"`
}

func DefaultAutomator() *Automator {
	return &Automator{
		ADBHost:       DefaultADBHost,
		ADBPort:       DefaultADBPort,
		UIALocalPort:  DefaultUIALocalPort,
		UIARemotePort: DefaultUIARemotePort,
	}
}

func (a *Automator) ADBAddress() string {
	return fmt.Sprintf("%s:%d", a.ADBHost, a.ADBPort)
}
