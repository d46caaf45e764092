// Package wifi brings up the tracker's standalone access point via
// NetworkManager, so phones and the courtside observer can reach the
// telemetry stream without any infrastructure. Requires root.
package wifi

import (
	"fmt"
	"net"
	"os/exec"
	"strings"
)

const (
	connName    = "SpinTrackAP"
	apInterface = "uap0"
	physDevice  = "wlan0"
	defaultIP   = "192.168.4.1"
)

// Swap points for tests; shelling out to nmcli/iw is not unit-testable.
var (
	run = func(name string, arg ...string) ([]byte, error) {
		return exec.Command(name, arg...).CombinedOutput()
	}
	interfaceByName = net.InterfaceByName
)

// EnsureAPInterface creates the uap0 virtual AP interface on top of wlan0 if
// it does not exist yet.
func EnsureAPInterface() error {
	// wlan0 must be up and must not power-save, or the AP drops while the
	// ball sits still between rallies.
	_, _ = run("ip", "link", "set", physDevice, "up")
	_, _ = run("iw", "dev", physDevice, "set", "power_save", "off")

	if _, err := run("iw", "dev", apInterface, "info"); err == nil {
		return nil
	}

	// Derive a distinct MAC from wlan0's by flipping the locally
	// administered bit, avoiding a clash between the two interfaces.
	phys, err := interfaceByName(physDevice)
	if err != nil {
		return fmt.Errorf("%s not found: %v", physDevice, err)
	}
	mac := make(net.HardwareAddr, len(phys.HardwareAddr))
	copy(mac, phys.HardwareAddr)
	if len(mac) > 0 {
		mac[0] ^= 0x02
	}

	out, err := run("iw", "dev", physDevice, "interface", "add", apInterface, "type", "__ap", "addr", mac.String())
	if err != nil {
		return fmt.Errorf("failed to create %s: %v, output: %s", apInterface, err, string(out))
	}
	return nil
}

// SetupAP (re)creates and activates the access point connection. An empty ip
// defaults to 192.168.4.1/24, the address baked into the companion apps.
func SetupAP(ssid, password, ip string) error {
	if err := EnsureAPInterface(); err != nil {
		return err
	}

	if ip == "" {
		ip = defaultIP
	}
	if !strings.Contains(ip, "/") {
		ip = ip + "/24"
	}

	// Recreate from scratch so a config change always sticks.
	_, _ = run("nmcli", "con", "delete", connName)

	args := []string{
		"con", "add", "type", "wifi", "ifname", apInterface, "con-name", connName,
		"autoconnect", "yes", "save", "yes",
		"ssid", ssid, "mode", "ap",
		"wifi.band", "bg", "wifi.channel", "6",
	}
	if password != "" {
		args = append(args,
			"wifi-sec.key-mgmt", "wpa-psk",
			"wifi-sec.proto", "rsn",
			"wifi-sec.pairwise", "ccmp",
			"wifi-sec.group", "ccmp",
			"wifi-sec.psk", password,
		)
	}
	if out, err := run("nmcli", args...); err != nil {
		return fmt.Errorf("failed to create AP connection: %v, output: %s", err, string(out))
	}

	if out, err := run("nmcli", "con", "modify", connName,
		"ipv4.addresses", ip,
		"ipv4.method", "shared"); err != nil {
		return fmt.Errorf("failed to set AP IP: %v, output: %s", err, string(out))
	}

	if out, err := run("nmcli", "con", "up", connName); err != nil {
		return fmt.Errorf("failed to bring up AP: %v, output: %s", err, string(out))
	}
	return nil
}

// Status reports the configured AP, for the daemon's startup log and status
// API.
type Status struct {
	SSID string `json:"ssid"`
	IP   string `json:"ip"`
}

func GetStatus() Status {
	var st Status
	if out, err := run("nmcli", "-g", "802-11-wireless.ssid", "connection", "show", connName); err == nil {
		st.SSID = strings.TrimSpace(string(out))
	}
	if out, err := run("nmcli", "-g", "ipv4.addresses", "connection", "show", connName); err == nil {
		st.IP = strings.TrimSpace(string(out))
	}
	return st
}
