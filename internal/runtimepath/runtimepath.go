// Package runtimepath locates the per-user runtime directory and the daemon
// socket inside it.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// SocketEnv overrides the socket location, e.g. to run a second daemon.
const SocketEnv = "TETHER_SOCKET"

const socketName = "tether.sock"

// Dir returns the runtime directory that holds the daemon socket. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/tether-runtime-<uid> (created, must be a private directory we own)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/tether-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	if err := checkPrivateDir(tmpDir, uid); err != nil {
		return "", err
	}
	return tmpDir, nil
}

// checkPrivateDir rejects a shared-/tmp directory that another user could
// have planted: it must be a real directory, owned by uid, mode 0700.
func checkPrivateDir(dir string, uid int) error {
	info, err := os.Lstat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat runtime dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("runtime dir %s is not a directory", dir)
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok && int(st.Uid) != uid {
		return fmt.Errorf("runtime dir %s is owned by uid %d, not %d", dir, st.Uid, uid)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("runtime dir %s has mode %04o, want 0700", dir, perm)
	}
	return nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	if p := os.Getenv(SocketEnv); p != "" {
		return p, nil
	}
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, socketName), nil
}
