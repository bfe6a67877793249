package android

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNoVersion is returned when dumpsys lists no versionName for a package.
var ErrNoVersion = errors.New("no versionName reported")

// shellRunner is the part of gadb.Device the bridge relies on.
type shellRunner interface {
	Serial() string
	RunShellCommand(cmd string, args ...string) (string, error)
	Forward(localPort, remotePort int, noRebind ...bool) error
	ForwardKill(localPort int) error
}

// Bridge is the ADB connection to one device.
type Bridge struct {
	dev shellRunner
}

func newBridge(dev shellRunner) *Bridge {
	return &Bridge{dev: dev}
}

func (b *Bridge) Serial() string {
	return b.dev.Serial()
}

// Shell runs a shell command on the device. gadb calls are not cancellable,
// ctx only bounds how long the caller waits.
func (b *Bridge) Shell(ctx context.Context, cmd string, args ...string) (string, error) {
	log.Debug().Str("serial", b.dev.Serial()).Str("cmd", strings.TrimSpace(cmd+" "+strings.Join(args, " "))).Msg("[Shell] run cmd")

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := b.dev.RunShellCommand(cmd, args...)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), cmd)
	case r := <-done:
		if r.err != nil {
			return r.out, errors.Wrap(r.err, cmd)
		}
		log.Trace().Str("output", r.out).Msg("[Shell] output")
		return r.out, nil
	}
}

func (b *Bridge) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	out, err := b.Shell(ctx, "pm", "list", "packages", pkg)
	if err != nil {
		return false, err
	}
	return parsePackageList(out, pkg), nil
}

func (b *Bridge) PackageVersionName(ctx context.Context, pkg string) (string, error) {
	out, err := b.Shell(ctx, "dumpsys", "package", pkg)
	if err != nil {
		return "", err
	}
	version, ok := parseVersionName(out)
	if !ok {
		return "", errors.Wrap(ErrNoVersion, pkg)
	}
	return version, nil
}

func (b *Bridge) Properties(ctx context.Context) (map[string]string, error) {
	out, err := b.Shell(ctx, "getprop")
	if err != nil {
		return nil, err
	}
	return parseGetprop(out), nil
}

func (b *Bridge) Forward(localPort, remotePort int) error {
	return errors.Wrap(b.dev.Forward(localPort, remotePort), "forward")
}

func (b *Bridge) ForwardKill(localPort int) error {
	return errors.Wrap(b.dev.ForwardKill(localPort), "forward --remove")
}
