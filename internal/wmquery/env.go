package wmquery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var readDirFn = os.ReadDir

// toolEnv returns env with DISPLAY and XAUTHORITY filled in for the query
// tools. Values already present in env win, then the configured values, then
// the highest-numbered local X socket and ~/.Xauthority.
func toolEnv(env []string, display, xauthority string) []string {
	env = append([]string(nil), env...)

	d := strings.TrimSpace(envLookup(env, "DISPLAY"))
	if d == "" {
		d = strings.TrimSpace(display)
	}
	if d == "" {
		d = detectDisplayFromSockets("/tmp/.X11-unix")
	}

	xa := strings.TrimSpace(envLookup(env, "XAUTHORITY"))
	if xa == "" {
		xa = strings.TrimSpace(xauthority)
	}
	if xa == "" {
		home := strings.TrimSpace(envLookup(env, "HOME"))
		if home != "" {
			candidate := filepath.Join(home, ".Xauthority")
			if _, err := os.Stat(candidate); err == nil {
				xa = candidate
			}
		}
	}

	if d != "" {
		env = upsertEnv(env, "DISPLAY", d)
	}
	if xa != "" {
		env = upsertEnv(env, "XAUTHORITY", xa)
	}
	return env
}

func detectDisplayFromSockets(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}

	var displays []int
	for _, entry := range entries {
		name := entry.Name()
		if len(name) < 2 || name[0] != 'X' {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		displays = append(displays, n)
	}

	if len(displays) == 0 {
		return ""
	}
	sort.Ints(displays)
	return fmt.Sprintf(":%d", displays[len(displays)-1])
}

func envLookup(env []string, key string) string {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return strings.TrimPrefix(e, prefix)
		}
	}
	return ""
}

func upsertEnv(env []string, key string, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
