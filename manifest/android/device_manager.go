package android

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/electricbubble/gadb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spance/whatsmanifest-go/manifest/definitions"
)

const (
	defaultTCPIPPort = 5555

	stateOnline = "device"

	propProductModel   = "ro.product.model"
	propProductName    = "ro.product.name"
	propAndroidRelease = "ro.build.version.release"
	propSDKLevel       = "ro.build.version.sdk"
)

var ErrNoDevice = errors.New("no online device")

// adbDevice is the part of gadb.Device the manager relies on.
type adbDevice interface {
	shellRunner
	Model() string
	Product() string
	State() (gadb.DeviceState, error)
	EnableAdbOverTCP(port ...int) error
}

// adbServer is the part of gadb.Client the manager relies on.
type adbServer interface {
	ServerVersion() (int, error)
	DeviceList() ([]adbDevice, error)
	Connect(host string, port int) error
	Disconnect(host string, port int) error
	DisconnectAll() error
}

type gadbServer struct {
	client gadb.Client
}

func (s gadbServer) ServerVersion() (int, error) {
	return s.client.ServerVersion()
}

func (s gadbServer) DeviceList() ([]adbDevice, error) {
	devices, err := s.client.DeviceList()
	if err != nil {
		return nil, err
	}
	return lo.Map(devices, func(d gadb.Device, _ int) adbDevice {
		return d
	}), nil
}

func (s gadbServer) Connect(host string, port int) error {
	return s.client.Connect(host, port)
}

func (s gadbServer) Disconnect(host string, port int) error {
	return s.client.Disconnect(host, port)
}

func (s gadbServer) DisconnectAll() error {
	return s.client.DisconnectAll()
}

// DeviceManager talks to the adb server.
type DeviceManager struct {
	client adbServer
	// tcpipSettle is how long EnableTCPIP waits for adbd to restart.
	tcpipSettle time.Duration
}

func NewDeviceManager(host string, port int) (*DeviceManager, error) {
	client, err := gadb.NewClientWith(host, port)
	if err != nil {
		return nil, errors.Wrapf(err, "connect adb server %s:%d", host, port)
	}
	return newDeviceManager(gadbServer{client: client}), nil
}

func newDeviceManager(client adbServer) *DeviceManager {
	return &DeviceManager{client: client, tcpipSettle: 5 * time.Second}
}

func (r *DeviceManager) ServerVersion(ctx context.Context) (int, error) {
	return r.client.ServerVersion()
}

func (r *DeviceManager) Connect(ctx context.Context, address string) (string, error) {
	host, port, err := splitAddress(address)
	if err != nil {
		return fmt.Sprintf("Connect error: %v", err), err
	}

	log.Debug().Str("address", address).Msg("[Connect] connecting")
	if err := r.client.Connect(host, port); err != nil {
		log.Error().Err(err).Msg("[Connect] failed")
		if strings.Contains(strings.ToLower(err.Error()), "already connected") {
			return fmt.Sprintf("Already connected to %s", address), nil
		}
		return fmt.Sprintf("Connect error: %v", err), err
	}
	return fmt.Sprintf("Connected to %s", address), nil
}

// Disconnect drops one remote device, or every remote device when address
// is empty.
func (r *DeviceManager) Disconnect(ctx context.Context, address string) (string, error) {
	if address == "" {
		if err := r.client.DisconnectAll(); err != nil {
			log.Error().Err(err).Msg("[Disconnect] failed")
			return fmt.Sprintf("Disconnect error: %v", err), err
		}
		return "Disconnected all remote devices", nil
	}

	host, port, err := splitAddress(address)
	if err != nil {
		return fmt.Sprintf("Disconnect error: %v", err), err
	}
	if err := r.client.Disconnect(host, port); err != nil {
		log.Error().Err(err).Msg("[Disconnect] failed")
		return fmt.Sprintf("Disconnect error: %v", err), err
	}
	return fmt.Sprintf("Disconnected from %s", address), nil
}

func (r *DeviceManager) ListDevices(ctx context.Context) ([]definitions.DeviceInfo, error) {
	devices, err := r.client.DeviceList()
	if err != nil {
		log.Error().Err(err).Msg("[ListDevices] failed")
		return nil, errors.Wrap(err, "list devices")
	}

	return lo.Map(devices, func(d adbDevice, _ int) definitions.DeviceInfo {
		return deviceInfoOf(d)
	}), nil
}

// Device returns a bridge to serial, or to the first online device when
// serial is empty.
func (r *DeviceManager) Device(ctx context.Context, serial string) (*Bridge, error) {
	dev, err := r.findDevice(serial)
	if err != nil {
		return nil, err
	}
	return newBridge(dev), nil
}

func (r *DeviceManager) findDevice(serial string) (adbDevice, error) {
	devices, err := r.client.DeviceList()
	if err != nil {
		return nil, errors.Wrap(err, "list devices")
	}

	dev, ok := lo.Find(devices, func(d adbDevice) bool {
		if serial != "" && d.Serial() != serial {
			return false
		}
		state, err := d.State()
		return err == nil && state == gadb.StateOnline
	})
	if !ok {
		if serial != "" {
			return nil, errors.Wrap(ErrNoDevice, serial)
		}
		return nil, ErrNoDevice
	}
	return dev, nil
}

func (r *DeviceManager) GetDeviceInfo(ctx context.Context, serial string) (*definitions.DeviceInfo, error) {
	bridge, err := r.Device(ctx, serial)
	if err != nil {
		return nil, err
	}
	props, err := bridge.Properties(ctx)
	if err != nil {
		return nil, err
	}
	return &definitions.DeviceInfo{
		DeviceID:       bridge.Serial(),
		Status:         stateOnline,
		ConnectionType: definitions.ConnectionTypeOf(bridge.Serial()),
		Model:          props[propProductModel],
		Product:        props[propProductName],
		AndroidVersion: props[propAndroidRelease],
		SDKLevel:       props[propSDKLevel],
	}, nil
}

func (r *DeviceManager) IsConnected(ctx context.Context, serial string) bool {
	_, err := r.Device(ctx, serial)
	return err == nil
}

func (r *DeviceManager) EnableTCPIP(ctx context.Context, port int, serial string) error {
	if port <= 0 {
		port = defaultTCPIPPort
	}
	dev, err := r.findDevice(serial)
	if err != nil {
		return err
	}
	if err := dev.EnableAdbOverTCP(port); err != nil {
		log.Error().Err(err).Msg("[EnableTCPIP] failed")
		return errors.Wrap(err, "enable tcpip")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.tcpipSettle):
	}
	return nil
}

func (r *DeviceManager) GetDeviceIP(ctx context.Context, serial string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	bridge, err := r.Device(ctx, serial)
	if err != nil {
		return "", err
	}

	out, err := bridge.Shell(ctx, "ip", "route")
	if err != nil {
		return "", err
	}
	if ip := parseRouteSrc(out); ip != "" {
		return ip, nil
	}

	out, err = bridge.Shell(ctx, "ip", "addr", "show", "wlan0")
	if err != nil {
		return "", err
	}
	return parseInetAddr(out), nil
}

// deviceInfoOf reports status in adb's own vocabulary, so an online device
// is "device" rather than gadb's "online".
func deviceInfoOf(d adbDevice) definitions.DeviceInfo {
	status := "unknown"
	if state, err := d.State(); err == nil {
		status = string(state)
		if state == gadb.StateOnline {
			status = stateOnline
		}
	}
	return definitions.DeviceInfo{
		DeviceID:       d.Serial(),
		Status:         status,
		ConnectionType: definitions.ConnectionTypeOf(d.Serial()),
		Model:          d.Model(),
		Product:        d.Product(),
	}
}

func splitAddress(address string) (string, int, error) {
	if !strings.Contains(address, ":") {
		return address, defaultTCPIPPort, nil
	}
	host, p, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid address %q", address)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid port in %q", address)
	}
	return host, port, nil
}
