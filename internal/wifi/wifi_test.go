package wifi

import (
	"fmt"
	"net"
	"strings"
	"testing"
)

type cmdRecorder struct {
	calls []string
	// fail maps a substring to an error returned when a command matches.
	fail map[string]error
	// out maps a substring to canned output.
	out map[string]string
}

func (r *cmdRecorder) run(name string, arg ...string) ([]byte, error) {
	call := name + " " + strings.Join(arg, " ")
	r.calls = append(r.calls, call)
	for sub, err := range r.fail {
		if strings.Contains(call, sub) {
			return nil, err
		}
	}
	for sub, out := range r.out {
		if strings.Contains(call, sub) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

func (r *cmdRecorder) called(sub string) bool {
	for _, c := range r.calls {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

func installRecorder(t *testing.T, r *cmdRecorder) {
	t.Helper()
	oldRun, oldIface := run, interfaceByName
	run = r.run
	interfaceByName = func(string) (*net.Interface, error) {
		return &net.Interface{
			HardwareAddr: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		}, nil
	}
	t.Cleanup(func() { run, interfaceByName = oldRun, oldIface })
}

func TestSetupAP_CommandSequence(t *testing.T) {
	r := &cmdRecorder{
		// "iw dev uap0 info" failing forces interface creation.
		fail: map[string]error{"dev uap0 info": fmt.Errorf("no such device")},
	}
	installRecorder(t, r)

	if err := SetupAP("TennisBall-IMU", "topspin42", ""); err != nil {
		t.Fatalf("SetupAP: %v", err)
	}

	// MAC derived from wlan0 with the locally administered bit flipped.
	if !r.called("interface add uap0 type __ap addr 02:11:22:33:44:55") {
		t.Fatalf("uap0 not created with derived MAC: %v", r.calls)
	}
	if !r.called("ssid TennisBall-IMU mode ap") {
		t.Fatalf("AP connection not added: %v", r.calls)
	}
	if !r.called("wifi-sec.psk topspin42") {
		t.Fatalf("WPA security not configured: %v", r.calls)
	}
	if !r.called("ipv4.addresses 192.168.4.1/24") {
		t.Fatalf("default IP not applied: %v", r.calls)
	}
	if !r.called("con up SpinTrackAP") {
		t.Fatalf("connection not activated: %v", r.calls)
	}
}

func TestSetupAP_OpenNetworkSkipsSecurity(t *testing.T) {
	r := &cmdRecorder{}
	installRecorder(t, r)

	if err := SetupAP("TennisBall-IMU", "", "10.1.1.1/16"); err != nil {
		t.Fatalf("SetupAP: %v", err)
	}
	if r.called("wifi-sec") {
		t.Fatalf("unexpected security args: %v", r.calls)
	}
	if !r.called("ipv4.addresses 10.1.1.1/16") {
		t.Fatalf("custom IP not applied: %v", r.calls)
	}
}

func TestSetupAP_PropagatesNmcliFailure(t *testing.T) {
	r := &cmdRecorder{
		fail: map[string]error{"con add": fmt.Errorf("nmcli exploded")},
	}
	installRecorder(t, r)

	err := SetupAP("TennisBall-IMU", "", "")
	if err == nil || !strings.Contains(err.Error(), "failed to create AP connection") {
		t.Fatalf("err=%v", err)
	}
}

func TestEnsureAPInterface_NoopWhenPresent(t *testing.T) {
	r := &cmdRecorder{} // "iw dev uap0 info" succeeds
	installRecorder(t, r)

	if err := EnsureAPInterface(); err != nil {
		t.Fatalf("EnsureAPInterface: %v", err)
	}
	if r.called("interface add") {
		t.Fatalf("recreated an existing interface: %v", r.calls)
	}
}

func TestGetStatus(t *testing.T) {
	r := &cmdRecorder{out: map[string]string{
		"802-11-wireless.ssid": "TennisBall-IMU\n",
		"ipv4.addresses":       "192.168.4.1/24\n",
	}}
	installRecorder(t, r)

	st := GetStatus()
	if st.SSID != "TennisBall-IMU" || st.IP != "192.168.4.1/24" {
		t.Fatalf("status=%+v", st)
	}
}
