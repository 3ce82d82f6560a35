package device

import (
	"fmt"

	"kasa-client/kasa"
)

// Outlet is a named HS100/HS110 plug.
type Outlet struct {
	name   InternalName
	client *kasa.Client
}

func NewOutlet(name InternalName, client *kasa.Client) *Outlet {
	return &Outlet{name, client}
}

func (o *Outlet) Client() *kasa.Client {
	return o.client
}

// device.Basic
var _ Basic = (*Outlet)(nil)

func (o *Outlet) GetID() InternalName {
	return o.name
}

// device.OnOff
var _ OnOff = (*Outlet)(nil)

func (o *Outlet) SetOnOff(on bool) (kasa.PowerState, error) {
	return o.client.Relay(&on)
}

func (o *Outlet) GetOnOff() (kasa.PowerState, error) {
	return o.client.Relay(nil)
}

// device.Led
var _ Led = (*Outlet)(nil)

func (o *Outlet) SetLed(on bool) (kasa.LedState, error) {
	return o.client.Led(&on)
}

func (o *Outlet) GetLed() (kasa.LedState, error) {
	return o.client.Led(nil)
}

// device.Metering
var _ Metering = (*Outlet)(nil)

func (o *Outlet) Emeter() (*kasa.Emeter, error) {
	return o.client.Emeter()
}

// Outlets builds an outlet for every configured address.
func Outlets(addrs map[InternalName]string, opts ...kasa.Option) (Devices, error) {
	devices := make(Devices)
	for name, addr := range addrs {
		client, err := kasa.New(addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("outlet %s: %w", name, err)
		}
		devices.Add(NewOutlet(name, client))
	}

	return devices, nil
}
