package device

import (
	"fmt"
	"sort"

	"kasa-client/kasa"
)

type Basic interface {
	GetID() InternalName
}

// OnOff reports the state read back from the device after every change.
type OnOff interface {
	SetOnOff(on bool) (kasa.PowerState, error)
	GetOnOff() (kasa.PowerState, error)
}

type Led interface {
	SetLed(on bool) (kasa.LedState, error)
	GetLed() (kasa.LedState, error)
}

type Metering interface {
	Emeter() (*kasa.Emeter, error)
}

type Devices map[InternalName]Basic

func (d Devices) Add(dev Basic) {
	d[dev.GetID()] = dev
}

// Names returns the device names in a stable order.
func (d Devices) Names() []InternalName {
	names := make([]InternalName, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

func GetDevices[K any](devices Devices) map[InternalName]K {
	devs := make(map[InternalName]K)

	for name, device := range devices {
		if dev, ok := device.(K); ok {
			devs[name] = dev
		}
	}

	return devs
}

func GetDevice[K any](devices Devices, name InternalName) (K, error) {
	var noop K

	d, ok := devices[name]
	if !ok {
		return noop, fmt.Errorf("device '%s' does not exist", name)
	}

	dev, ok := d.(K)
	if !ok {
		return noop, fmt.Errorf("device '%s' is not the expected type", name)
	}

	return dev, nil
}
