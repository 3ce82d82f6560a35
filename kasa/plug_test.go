package kasa

import (
	"encoding/json"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// reply tells the fake plug what to do with one connection.
type reply struct {
	body any
	// hangUp closes the connection without answering
	hangUp bool
	// stall keeps the connection open without answering
	stall bool
	// reset aborts the connection with a RST shortly after answering
	reset bool
	// abort sends a RST instead of answering
	abort bool
}

// fakePlug speaks the real framing on a loopback port.
type fakePlug struct {
	ln      net.Listener
	handler func(req Value) reply

	mu       sync.Mutex
	requests []string
	wg       sync.WaitGroup
}

func newFakePlug(t *testing.T, handler func(req Value) reply) *fakePlug {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := &fakePlug{ln: ln, handler: handler}
	go p.serve()

	t.Cleanup(func() {
		ln.Close()
		p.wg.Wait()
	})

	return p
}

func (p *fakePlug) Addr() string {
	return p.ln.Addr().String()
}

func (p *fakePlug) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.requests...)
}

func (p *fakePlug) serve() {
	for {
		con, err := p.ln.Accept()
		if err != nil {
			return
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.handle(con)
		}()
	}
}

func (p *fakePlug) handle(con net.Conn) {
	defer con.Close()

	plaintext, err := Decode(con)
	if err != nil {
		return
	}

	p.mu.Lock()
	p.requests = append(p.requests, string(plaintext))
	p.mu.Unlock()

	req, err := ParseValue(plaintext)
	if err != nil {
		return
	}

	r := p.handler(req)
	switch {
	case r.hangUp:
		return
	case r.stall:
		io.Copy(io.Discard, con)
		return
	case r.abort:
		if tcp, ok := con.(*net.TCPConn); ok {
			tcp.SetLinger(0)
		}
		return
	}

	var b []byte
	if s, ok := r.body.(string); ok {
		b = []byte(s)
	} else if b, err = json.Marshal(r.body); err != nil {
		return
	}

	if _, err := con.Write(Encode(b)); err != nil {
		return
	}

	if r.reset {
		time.Sleep(20 * time.Millisecond)
		if tcp, ok := con.(*net.TCPConn); ok {
			tcp.SetLinger(0)
		}
	}
}

// plugState is a minimal stateful plug: it honors relay and LED changes.
type plugState struct {
	mu     sync.Mutex
	relay  int
	ledOff int
	// ignoreSets acknowledges set commands without applying them
	ignoreSets bool
}

func (s *plugState) handle(req Value) reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := req.Get("system", "get_sysinfo"); ok {
		return reply{body: map[string]any{"system": map[string]any{"get_sysinfo": map[string]any{
			"alias":       "Bathroom",
			"model":       "HS110(EU)",
			"hw_ver":      "2.0",
			"relay_state": s.relay,
			"led_off":     s.ledOff,
			"err_code":    0,
		}}}}
	}

	if v, ok := req.Get("system", "set_relay_state", "state"); ok {
		if !s.ignoreSets {
			s.relay, _ = v.Int()
		}
		return reply{body: `{"system":{"set_relay_state":{"err_code":0}}}`}
	}

	if v, ok := req.Get("system", "set_led_off", "off"); ok {
		if !s.ignoreSets {
			s.ledOff, _ = v.Int()
		}
		return reply{body: `{"system":{"set_led_off":{"err_code":0}}}`}
	}

	return reply{body: `{"system":{"err_code":-1,"err_msg":"module not support"}}`}
}

func newTestClient(t *testing.T, p *fakePlug, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithTimeout(2 * time.Second)}, opts...)
	c, err := New(p.Addr(), opts...)
	require.NoError(t, err)

	return c
}
