package monitor

import (
	"context"
	"log"
	"time"

	"kasa-client/device"
	"kasa-client/kasa"
)

// Sink receives what the poller reads from the outlets.
type Sink interface {
	State(name device.InternalName, state kasa.PowerState)
	Emeter(name device.InternalName, e *kasa.Emeter)
}

type Monitor struct {
	devices  device.Devices
	interval time.Duration
	sinks    []Sink
}

func New(devices device.Devices, interval time.Duration, sinks ...Sink) *Monitor {
	return &Monitor{devices: devices, interval: interval, sinks: sinks}
}

// Run polls every outlet once per interval until ctx is done. A non-positive
// interval polls once.
func (m *Monitor) Run(ctx context.Context) {
	m.Poll()
	if m.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll reads relay state and emeter of every outlet one after the other.
func (m *Monitor) Poll() {
	for _, name := range m.devices.Names() {
		if outlet, err := device.GetDevice[device.OnOff](m.devices, name); err == nil {
			state, err := outlet.GetOnOff()
			if err != nil {
				log.Printf("Failed to query %s: %s\n", name, err)
				continue
			}

			for _, sink := range m.sinks {
				sink.State(name, state)
			}
		}

		if outlet, err := device.GetDevice[device.Metering](m.devices, name); err == nil {
			e, err := outlet.Emeter()
			if err != nil {
				// HS100 has no emeter
				if !kasa.Unsupported(err) {
					log.Printf("Failed to read emeter of %s: %s\n", name, err)
				}
				continue
			}

			for _, sink := range m.sinks {
				sink.Emeter(name, e)
			}
		}
	}
}
