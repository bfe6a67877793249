package android

import (
	"bufio"
	"strings"
)

// parsePackageList reports whether `pm list packages` output names pkg.
// pm filters by substring, so "com.whatsapp" also lists "com.whatsapp.w4b".
func parsePackageList(output, pkg string) bool {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		name, ok := strings.CutPrefix(line, "package:")
		if !ok {
			continue
		}
		// -f prints "package:/data/app/.../base.apk=com.whatsapp"
		if i := strings.LastIndex(name, "="); i >= 0 {
			name = name[i+1:]
		}
		if name == pkg {
			return true
		}
	}
	return false
}

// parseVersionName returns the first versionName in `dumpsys package` output.
func parseVersionName(output string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if _, v, ok := strings.Cut(line, "versionName="); ok {
			fields := strings.Fields(v)
			if len(fields) > 0 {
				return fields[0], true
			}
		}
	}
	return "", false
}

// parseGetprop parses `getprop` output of the form "[key]: [value]".
func parseGetprop(output string) map[string]string {
	props := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "]: [")
		if !ok || !strings.HasPrefix(key, "[") || !strings.HasSuffix(value, "]") {
			continue
		}
		props[key[1:]] = value[:len(value)-1]
	}
	return props
}

// parseRouteSrc returns the src address of `ip route` output.
func parseRouteSrc(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "src") {
			continue
		}
		parts := strings.Fields(line)
		for i, part := range parts {
			if part == "src" && i+1 < len(parts) {
				return parts[i+1]
			}
		}
	}
	return ""
}

// parseInetAddr returns the first IPv4 address of `ip addr show` output.
func parseInetAddr(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "inet ") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			return strings.Split(parts[1], "/")[0]
		}
	}
	return ""
}

// parseFocusedPackage extracts the package of the focused window from
// `dumpsys window` output.
func parseFocusedPackage(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "mCurrentFocus") && !strings.HasPrefix(line, "mFocusedApp") {
			continue
		}
		for _, field := range strings.Fields(line) {
			field = strings.TrimRight(field, "}")
			if pkg, _, ok := strings.Cut(field, "/"); ok && strings.Contains(pkg, ".") {
				return pkg
			}
		}
	}
	return ""
}
