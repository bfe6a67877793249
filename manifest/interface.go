package manifest

import (
	"context"
)

// Bridge is the ADB connection to a single device.
type Bridge interface {
	Serial() string
	IsInstalled(ctx context.Context, pkg string) (bool, error)
	PackageVersionName(ctx context.Context, pkg string) (string, error)
	Properties(ctx context.Context) (map[string]string, error)
}

// Forwarder is implemented by bridges able to forward a host port to the device.
type Forwarder interface {
	Forward(localPort, remotePort int) error
	ForwardKill(localPort int) error
}

// UIHandle drives the on-device UI through the UIAutomator2 server.
type UIHandle interface {
	Click(x, y int) error
	Back() error
	PressKeyCode(keyCode int) error
	Screenshot() ([]byte, error)
	Source() (string, error)
	DisplaySize() (string, error)
	Close() error
}

// UtilityClient is the auxiliary adb client bound to one serial.
type UtilityClient interface {
	Serial() (string, error)
	State() (string, error)
	RunCommand(cmd string, args ...string) (string, error)
	ServerVersion() (int, error)
}

type UIFactory func(ctx context.Context, d *Device) (UIHandle, error)

type UtilityFactory func(ctx context.Context, serial string, automator *Automator) (UtilityClient, error)
