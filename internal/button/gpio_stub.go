//go:build !linux

package button

import "fmt"

func OpenGPIO(chipPath, lineName string) (Input, error) {
	return nil, fmt.Errorf("button: gpio not supported on this platform")
}
