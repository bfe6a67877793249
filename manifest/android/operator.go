package android

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const settleDelay = time.Second

// LaunchApp starts the launcher activity of pkg.
func (b *Bridge) LaunchApp(ctx context.Context, pkg string) error {
	out, err := b.Shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		log.Error().Err(err).Str("package", pkg).Msg("failed to launch app")
		return err
	}
	if containsAny(out, "No activities found", "monkey aborted") {
		return errors.Errorf("launch %s: %s", pkg, out)
	}
	time.Sleep(settleDelay)
	return nil
}

// ForceStop kills every process of pkg.
func (b *Bridge) ForceStop(ctx context.Context, pkg string) error {
	_, err := b.Shell(ctx, "am", "force-stop", pkg)
	return err
}

// CurrentPackage returns the package owning the focused window, or "" on
// the launcher or lock screen.
func (b *Bridge) CurrentPackage(ctx context.Context) (string, error) {
	out, err := b.Shell(ctx, "dumpsys", "window")
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", errors.New("no output from dumpsys window")
	}
	return parseFocusedPackage(out), nil
}

func containsAny(s string, subs ...string) bool {
	return lo.ContainsBy(subs, func(sub string) bool {
		return strings.Contains(s, sub)
	})
}
