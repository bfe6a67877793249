package manifest

import (
	"context"
	"fmt"
	"strings"
)

const (
	propAndroidRelease = "ro.build.version.release"
	propSDKLevel       = "ro.build.version.sdk"
	propProductModel   = "ro.product.model"
)

// Phone reads OS level facts about the device behind a bridge.
type Phone struct {
	bridge Bridge
}

func NewPhone(bridge Bridge) *Phone {
	return &Phone{bridge: bridge}
}

// PhoneVersion returns the Android release, e.g. "8.1.0".
func (p *Phone) PhoneVersion(ctx context.Context) (string, error) {
	return p.property(ctx, propAndroidRelease)
}

// SDKVersion returns the API level, e.g. "27".
func (p *Phone) SDKVersion(ctx context.Context) (string, error) {
	return p.property(ctx, propSDKLevel)
}

func (p *Phone) property(ctx context.Context, key string) (string, error) {
	props, err := p.bridge.Properties(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return strings.TrimSpace(props[key]), nil
}
