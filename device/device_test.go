package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternalName(t *testing.T) {
	tests := []struct {
		name InternalName
		room string
		want string
	}{
		{"living_room/floor_lamp", "Living Room", "Floor Lamp"},
		{"kettle", "", "Kettle"},
		{"bedroom/fan/left", "Bedroom", "Fan/left"},
	}

	for _, tt := range tests {
		t.Run(tt.name.String(), func(t *testing.T) {
			assert.Equal(t, tt.room, tt.name.Room())
			assert.Equal(t, tt.want, tt.name.Name())
		})
	}
}

func TestOutlets(t *testing.T) {
	devices, err := Outlets(map[InternalName]string{
		"bathroom/heater": "192.168.1.20",
		"office/monitor":  "192.168.1.21:10000",
	})
	require.NoError(t, err)

	assert.Equal(t, []InternalName{"bathroom/heater", "office/monitor"}, devices.Names())

	outlet, err := GetDevice[*Outlet](devices, "office/monitor")
	require.NoError(t, err)
	assert.Equal(t, 10000, outlet.Client().Addr().Port)

	assert.Len(t, GetDevices[OnOff](devices), 2)
	assert.Len(t, GetDevices[Metering](devices), 2)

	_, err = GetDevice[OnOff](devices, "garage/door")
	assert.Error(t, err)
}

type dummy struct{}

func (dummy) GetID() InternalName { return "hall/dummy" }

func TestGetDeviceWrongType(t *testing.T) {
	devices := make(Devices)
	devices.Add(dummy{})

	_, err := GetDevice[OnOff](devices, "hall/dummy")
	assert.Error(t, err)
	assert.Empty(t, GetDevices[OnOff](devices))
}
