package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// ErrNoHostSignature is returned when no stable machine identifier is
// readable on the current platform.
var ErrNoHostSignature = errors.New("fingerprint: no host signature available")

var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
	"/sys/class/dmi/id/product_uuid",
}

// Host is the Environment for terminal clients. The rendering signature is
// derived from the machine identifier and the screen size is the size of the
// controlling terminal.
type Host struct {
	Agent string
	// Fd is the terminal file descriptor used for ScreenSize.
	Fd int
}

func NewHost(agent string) Host {
	return Host{Agent: agent, Fd: int(os.Stdout.Fd())}
}

func (h Host) UserAgent() string {
	if h.Agent == "" {
		return "sensorauth/" + runtime.GOOS + "-" + runtime.GOARCH
	}
	return h.Agent
}

func (h Host) CanvasSignature() (string, error) {
	if runtime.GOOS != "linux" {
		return "", ErrNoHostSignature
	}
	for _, p := range machineIDPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		id := strings.TrimSpace(string(data))
		if id == "" {
			continue
		}
		sum := sha256.Sum256([]byte(runtime.GOOS + ":" + id))
		return hex.EncodeToString(sum[:16]), nil
	}
	return "", ErrNoHostSignature
}

func (h Host) ScreenSize() (int, int) {
	if !term.IsTerminal(h.Fd) {
		return 0, 0
	}
	w, ht, err := term.GetSize(h.Fd)
	if err != nil {
		return 0, 0
	}
	return w, ht
}
