package android

import (
	"github.com/pkg/errors"
	goadb "github.com/zach-klippenstein/goadb"
)

// UtilityClient is a second adb client pinned to one serial, used for
// one-off commands outside the bridge.
type UtilityClient struct {
	adb *goadb.Adb
	dev *goadb.Device
}

func NewUtilityClient(host string, port int, serial string) (*UtilityClient, error) {
	if serial == "" {
		return nil, errors.New("serial is required")
	}
	adb, err := goadb.NewWithConfig(goadb.ServerConfig{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, errors.Wrap(err, "adb utility client")
	}
	return &UtilityClient{
		adb: adb,
		dev: adb.Device(goadb.DeviceWithSerial(serial)),
	}, nil
}

func (c *UtilityClient) Serial() (string, error) {
	return c.dev.Serial()
}

func (c *UtilityClient) State() (string, error) {
	state, err := c.dev.State()
	if err != nil {
		return "", err
	}
	return state.String(), nil
}

func (c *UtilityClient) RunCommand(cmd string, args ...string) (string, error) {
	return c.dev.RunCommand(cmd, args...)
}

func (c *UtilityClient) ServerVersion() (int, error) {
	return c.adb.ServerVersion()
}
