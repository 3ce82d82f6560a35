// Package kasatest provides an in-process smart plug for tests.
package kasatest

import (
	"encoding/json"
	"net"
	"sync"
	"testing"

	"kasa-client/kasa"
)

// Plug is a stateful HS110 lookalike listening on a loopback port. It
// honors relay and LED changes and answers emeter queries.
type Plug struct {
	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	relay    int
	ledOff   int
	ignore   bool
	emeter   map[string]any
	requests []string
}

func NewPlug(t testing.TB) *Plug {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	p := &Plug{
		ln: ln,
		emeter: map[string]any{
			"current": 0.027566, "voltage": 232.835569, "power": 0.775979, "total": 188.23,
		},
	}
	go p.serve()

	t.Cleanup(func() {
		ln.Close()
		p.wg.Wait()
	})

	return p
}

func (p *Plug) Addr() string {
	return p.ln.Addr().String()
}

func (p *Plug) SetRelay(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.relay = 0
	if on {
		p.relay = 1
	}
}

// IgnoreSets makes the plug acknowledge set commands without applying them.
func (p *Plug) IgnoreSets(ignore bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ignore = ignore
}

// NoEmeter makes the plug behave like an HS100.
func (p *Plug) NoEmeter() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.emeter = nil
}

func (p *Plug) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.requests...)
}

func (p *Plug) serve() {
	for {
		con, err := p.ln.Accept()
		if err != nil {
			return
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer con.Close()

			plaintext, err := kasa.Decode(con)
			if err != nil {
				return
			}

			req, err := kasa.ParseValue(plaintext)
			if err != nil {
				return
			}

			b, err := json.Marshal(p.handle(string(plaintext), req))
			if err != nil {
				return
			}
			con.Write(kasa.Encode(b))
		}()
	}
}

func result(module, action string, fields map[string]any) map[string]any {
	fields["err_code"] = 0
	return map[string]any{module: map[string]any{action: fields}}
}

func (p *Plug) handle(raw string, req kasa.Value) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, raw)

	switch {
	case has(req, "system", "get_sysinfo"):
		return result("system", "get_sysinfo", map[string]any{
			"alias":       "Test Plug",
			"model":       "HS110(EU)",
			"hw_ver":      "2.0",
			"relay_state": p.relay,
			"led_off":     p.ledOff,
		})

	case has(req, "system", "set_relay_state"):
		if v, ok := req.Get("system", "set_relay_state", "state"); ok && !p.ignore {
			p.relay, _ = v.Int()
		}
		return result("system", "set_relay_state", map[string]any{})

	case has(req, "system", "set_led_off"):
		if v, ok := req.Get("system", "set_led_off", "off"); ok && !p.ignore {
			p.ledOff, _ = v.Int()
		}
		return result("system", "set_led_off", map[string]any{})

	case has(req, "system", "reboot"):
		return result("system", "reboot", map[string]any{})

	case has(req, "cnCloud", "get_info"):
		return result("cnCloud", "get_info", map[string]any{"binded": 0, "cld_connection": 0, "server": ""})

	case has(req, "netif", "get_scaninfo"):
		return result("netif", "get_scaninfo", map[string]any{
			"ap_list": []map[string]any{{"ssid": "RADIO", "key_type": 3}},
		})

	case has(req, "emeter", "get_realtime"):
		if p.emeter == nil {
			return map[string]any{"emeter": map[string]any{"err_code": -1, "err_msg": "module not support"}}
		}
		fields := make(map[string]any, len(p.emeter))
		for k, v := range p.emeter {
			fields[k] = v
		}
		return result("emeter", "get_realtime", fields)
	}

	return map[string]any{"err_code": -1, "err_msg": "module not support"}
}

func has(req kasa.Value, path ...string) bool {
	_, ok := req.Get(path...)
	return ok
}
