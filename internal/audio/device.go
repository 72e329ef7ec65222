package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	ID        string // Unique device identifier
	Name      string // Human-readable device name
	IsDefault bool   // Whether this is the default device
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// describeDevices converts malgo device records into DeviceInfo values,
// keeping index positions aligned with the input.
func describeDevices(infos []malgo.DeviceInfo) []DeviceInfo {
	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceInfo{
			ID:        fmt.Sprintf("capture-%d", i),
			Name:      infos[i].Name(),
			IsDefault: infos[i].IsDefault > 0,
		})
	}
	return devices
}

// matchDevice resolves a query to an index into devices. An empty query
// resolves to the default device; otherwise the query matches by ID or
// case-insensitive name fragment.
func matchDevice(devices []DeviceInfo, query string) (int, error) {
	if len(devices) == 0 {
		return -1, fmt.Errorf("no capture devices found")
	}

	if query == "" {
		for i, device := range devices {
			if device.IsDefault {
				return i, nil
			}
		}
		return 0, nil
	}

	search := strings.ToLower(query)
	for i, device := range devices {
		if device.ID == query || strings.Contains(strings.ToLower(device.Name), search) {
			return i, nil
		}
	}

	return -1, fmt.Errorf("no device found matching: %s", query)
}

// ListDevices enumerates the available capture devices.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	return describeDevices(infos), nil
}

// FindDevice resolves a device by ID or case-insensitive name fragment.
// An empty query resolves to the default device.
func FindDevice(query string) (*DeviceInfo, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}

	idx, err := matchDevice(devices, query)
	if err != nil {
		return nil, err
	}
	return &devices[idx], nil
}
