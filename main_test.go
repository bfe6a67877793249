package main

import (
	"context"
	"errors"
	"testing"

	"github.com/spance/whatsmanifest-go/manifest/definitions"
)

type fakeCommander struct {
	err       error
	connected bool
	ip        string
	tcpip     []int
}

func (f *fakeCommander) ListDevices(ctx context.Context) ([]definitions.DeviceInfo, error) {
	return []definitions.DeviceInfo{{DeviceID: "emulator-5554", Status: "device"}}, f.err
}

func (f *fakeCommander) GetDeviceInfo(ctx context.Context, serial string) (*definitions.DeviceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &definitions.DeviceInfo{DeviceID: "emulator-5554", Model: "Pixel_3"}, nil
}

func (f *fakeCommander) Connect(ctx context.Context, address string) (string, error) {
	if f.err != nil {
		return "Connect error: " + f.err.Error(), f.err
	}
	return "Connected to " + address, nil
}

func (f *fakeCommander) IsConnected(ctx context.Context, serial string) bool {
	return f.connected
}

func (f *fakeCommander) EnableTCPIP(ctx context.Context, port int, serial string) error {
	f.tcpip = append(f.tcpip, port)
	return f.err
}

func (f *fakeCommander) GetDeviceIP(ctx context.Context, serial string) (string, error) {
	return f.ip, f.err
}

func (f *fakeCommander) Disconnect(ctx context.Context, address string) (string, error) {
	return "Disconnected", f.err
}

func TestHandleDeviceCommands(t *testing.T) {
	failure := errors.New("adb server unreachable")

	cases := []struct {
		name     string
		cfg      Config
		commands *fakeCommander
		wantCode int
	}{
		{"list devices", Config{ListDevices: true, JSON: true}, &fakeCommander{}, exitOK},
		{"list devices fails", Config{ListDevices: true}, &fakeCommander{err: failure}, exitError},
		{"device info", Config{DeviceInfo: true, JSON: true}, &fakeCommander{}, exitOK},
		{"device info fails", Config{DeviceInfo: true}, &fakeCommander{err: failure}, exitError},
		{"connect", Config{Connect: "192.168.1.100:5555"}, &fakeCommander{connected: true}, exitOK},
		{"connect fails", Config{Connect: "192.168.1.100:5555"}, &fakeCommander{err: failure}, exitError},
		{"enable tcpip", Config{EnableTCPIP: 5555}, &fakeCommander{}, exitOK},
		{"enable tcpip fails", Config{EnableTCPIP: 5555}, &fakeCommander{err: failure}, exitError},
		{"device ip", Config{GetDeviceIP: "R58M123456"}, &fakeCommander{ip: "192.168.1.42"}, exitOK},
		{"device ip empty", Config{GetDeviceIP: "R58M123456"}, &fakeCommander{}, exitError},
		{"disconnect", Config{Disconnect: "all"}, &fakeCommander{}, exitOK},
		{"disconnect fails", Config{Disconnect: "all"}, &fakeCommander{err: failure}, exitError},
	}
	saved := *config
	defer func() { *config = saved }()

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			*config = c.cfg
			hit, code := handleDeviceCommands(context.Background(), c.commands)
			if !hit {
				t.Fatalf("command was not handled")
			}
			if code != c.wantCode {
				t.Errorf("exit code = %d, want %d", code, c.wantCode)
			}
		})
	}
}

func TestHandleDeviceCommandsNone(t *testing.T) {
	saved := *config
	defer func() { *config = saved }()

	*config = Config{}
	f := &fakeCommander{}
	if hit, _ := handleDeviceCommands(context.Background(), f); hit {
		t.Errorf("no device command given but one was handled")
	}
	if len(f.tcpip) != 0 {
		t.Errorf("enable tcpip ran without the flag")
	}
}
