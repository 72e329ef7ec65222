package audio

import "testing"

func TestMatchDevice(t *testing.T) {
	devices := []DeviceInfo{
		{ID: "capture-0", Name: "Built-in Microphone"},
		{ID: "capture-1", Name: "USB Audio Interface", IsDefault: true},
		{ID: "capture-2", Name: "Loopback"},
	}

	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 1, false}, // empty query resolves the default
		{"capture-0", 0, false},
		{"usb", 1, false},
		{"LOOPBACK", 2, false},
		{"built-in micro", 0, false},
		{"webcam", -1, true},
	}

	for _, tt := range tests {
		got, err := matchDevice(devices, tt.query)
		if tt.wantErr {
			if err == nil {
				t.Errorf("matchDevice(%q) expected an error, got index %d", tt.query, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("matchDevice(%q) error = %v", tt.query, err)
			continue
		}
		if got != tt.want {
			t.Errorf("matchDevice(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestMatchDeviceNoDefault(t *testing.T) {
	devices := []DeviceInfo{
		{ID: "capture-0", Name: "Mic A"},
		{ID: "capture-1", Name: "Mic B"},
	}

	got, err := matchDevice(devices, "")
	if err != nil {
		t.Fatalf("matchDevice() error = %v", err)
	}
	if got != 0 {
		t.Errorf("matchDevice() = %d, want first device when none is default", got)
	}
}

func TestMatchDeviceEmptyList(t *testing.T) {
	if _, err := matchDevice(nil, "anything"); err == nil {
		t.Error("matchDevice() with no devices expected an error")
	}
}
