package uiautomator

import (
	"context"

	"github.com/devicelab-dev/maestro-runner/pkg/uiautomator2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Forwarder maps a host port onto a device port.
type Forwarder interface {
	Forward(localPort, remotePort int) error
	ForwardKill(localPort int) error
}

// client is the subset of *uiautomator2.Client a Handle uses.
type client interface {
	Click(x, y int) error
	Back() error
	PressKeyCode(keyCode int) error
	Screenshot() ([]byte, error)
	Source() (string, error)
	GetDeviceInfo() (*uiautomator2.DeviceInfo, error)
}

// Handle drives the UIAutomator2 server running on a device through a
// forwarded port. It owns the forward and removes it on Close.
type Handle struct {
	client    client
	forwarder Forwarder
	localPort int
}

// Open forwards localPort to the on-device server port and connects to it.
func Open(ctx context.Context, fwd Forwarder, localPort, remotePort int) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := fwd.Forward(localPort, remotePort); err != nil {
		return nil, errors.Wrapf(err, "forward tcp:%d -> tcp:%d", localPort, remotePort)
	}
	log.Debug().Int("local", localPort).Int("remote", remotePort).Msg("uiautomator2 port forwarded")

	return &Handle{
		client:    uiautomator2.NewClientTCP(localPort),
		forwarder: fwd,
		localPort: localPort,
	}, nil
}

func newHandle(c client) *Handle {
	return &Handle{client: c}
}

func (h *Handle) Click(x, y int) error {
	return errors.Wrap(h.client.Click(x, y), "click")
}

func (h *Handle) Back() error {
	return errors.Wrap(h.client.Back(), "back")
}

func (h *Handle) PressKeyCode(keyCode int) error {
	return errors.Wrap(h.client.PressKeyCode(keyCode), "press key")
}

func (h *Handle) Screenshot() ([]byte, error) {
	data, err := h.client.Screenshot()
	if err != nil {
		return nil, errors.Wrap(err, "screenshot")
	}
	return data, nil
}

// Source returns the current UI hierarchy as XML.
func (h *Handle) Source() (string, error) {
	src, err := h.client.Source()
	if err != nil {
		return "", errors.Wrap(err, "source")
	}
	return src, nil
}

// DisplaySize returns the real display size, e.g. "1080x2400".
func (h *Handle) DisplaySize() (string, error) {
	info, err := h.client.GetDeviceInfo()
	if err != nil {
		return "", errors.Wrap(err, "device info")
	}
	return info.RealDisplaySize, nil
}

func (h *Handle) Close() error {
	if h.forwarder == nil {
		return nil
	}
	fwd := h.forwarder
	h.forwarder = nil
	return fwd.ForwardKill(h.localPort)
}
