package kasa

import (
	"bytes"
	"errors"
	"log"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

func uintPtr(u uint) *uint {
	return &u
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"192.168.1.20", Address{Host: "192.168.1.20", Port: 9999}},
		{"192.168.1.20:10000", Address{Host: "192.168.1.20", Port: 10000}},
		{"plug.lan", Address{Host: "plug.lan", Port: 9999}},
		{"fe80::1", Address{Host: "fe80::1", Port: 9999}},
		{"[fe80::1]:9998", Address{Host: "fe80::1", Port: 9998}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAddress("")
	assert.Error(t, err)

	_, err = ParseAddress("plug.lan:http")
	assert.Error(t, err)
}

func TestSystemInfo(t *testing.T) {
	state := &plugState{relay: 1}
	p := newFakePlug(t, state.handle)

	info, err := newTestClient(t, p).SystemInfo()
	require.NoError(t, err)

	assert.Equal(t, "Bathroom", info.Alias)
	assert.Equal(t, PowerOn, info.Power())
	assert.Equal(t, []string{`{"system":{"get_sysinfo":{}}}`}, p.Requests())
}

func TestAlias(t *testing.T) {
	state := &plugState{}
	p := newFakePlug(t, state.handle)

	alias, err := newTestClient(t, p).Alias()
	require.NoError(t, err)
	assert.Equal(t, "Bathroom", alias)
}

func TestLedSetThenQuery(t *testing.T) {
	state := &plugState{ledOff: 0}
	p := newFakePlug(t, state.handle)
	c := newTestClient(t, p)

	led, err := c.Led(boolPtr(false))
	require.NoError(t, err)
	assert.Equal(t, LedOff, led)

	assert.Equal(t, []string{
		`{"system":{"set_led_off":{"off":1}}}`,
		`{"system":{"get_sysinfo":{}}}`,
	}, p.Requests())
}

func TestLedReportsDeviceStateNotRequest(t *testing.T) {
	// The plug claims success but keeps the LED on
	state := &plugState{ledOff: 0, ignoreSets: true}
	p := newFakePlug(t, state.handle)

	led, err := newTestClient(t, p).Led(boolPtr(false))
	require.NoError(t, err)
	assert.Equal(t, LedOn, led)
}

func TestLedQueryOnly(t *testing.T) {
	state := &plugState{ledOff: 1}
	p := newFakePlug(t, state.handle)

	led, err := newTestClient(t, p).Led(nil)
	require.NoError(t, err)
	assert.Equal(t, LedOff, led)
	assert.Len(t, p.Requests(), 1)
}

func TestRelayToggle(t *testing.T) {
	state := &plugState{relay: 0}
	p := newFakePlug(t, state.handle)
	c := newTestClient(t, p)

	power, err := c.Relay(boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, PowerOn, power)

	power, err = c.Relay(boolPtr(false))
	require.NoError(t, err)
	assert.Equal(t, PowerOff, power)
}

func TestRelayDeviceError(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		return reply{body: `{"system":{"set_relay_state":{"err_code":-3}}}`}
	})

	_, err := newTestClient(t, p).Relay(boolPtr(true))

	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, DeviceError, re.Kind)
	assert.Equal(t, -3, re.Code)

	// No verification query after a failed set
	assert.Len(t, p.Requests(), 1)
}

func TestRebootIgnoresResetAfterAck(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		return reply{body: `{"system":{"reboot":{"err_code":0}}}`, reset: true}
	})

	assert.NoError(t, newTestClient(t, p).Reboot(uintPtr(1)))
	assert.Equal(t, []string{`{"system":{"reboot":{"delay":1}}}`}, p.Requests())
}

func TestRebootWithoutAck(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		return reply{hangUp: true}
	})

	err := newTestClient(t, p).Reboot(nil)

	var pe *ProtocolError
	assert.True(t, errors.As(err, &pe), "got %v", err)
}

func TestFactoryReset(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		return reply{body: `{"system":{"reset":{"err_code":0}}}`, reset: true}
	})

	c := newTestClient(t, p)
	assert.NoError(t, c.FactoryReset(uintPtr(1)))
	assert.NoError(t, c.FactoryReset(nil))
	assert.Equal(t, []string{
		`{"system":{"reset":{"delay":1}}}`,
		`{"system":{"reset":{"delay":0}}}`,
	}, p.Requests())
}

func TestCallTimeout(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		return reply{stall: true}
	})

	c := newTestClient(t, p, WithTimeout(50*time.Millisecond))
	_, err := c.SystemInfo()

	var te *TimeoutError
	assert.True(t, errors.As(err, &te), "got %v", err)
}

// A reset mid exchange is a socket failure, not a truncated frame: only a
// clean EOF counts as ProtocolError.
func TestCallConnectionReset(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		return reply{abort: true}
	})

	_, err := newTestClient(t, p).SystemInfo()

	var ioe *IOError
	require.True(t, errors.As(err, &ioe), "got %v", err)
	assert.ErrorIs(t, err, syscall.ECONNRESET)

	var pe *ProtocolError
	assert.False(t, errors.As(err, &pe))
}

func TestCallConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c, err := New(addr, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.SystemInfo()

	var ce *ConnectError
	assert.True(t, errors.As(err, &ce), "got %v", err)
}

func TestCallGarbageReply(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		return reply{body: "this is not json"}
	})

	_, err := newTestClient(t, p).CloudInfo()

	var pe *ProtocolError
	assert.True(t, errors.As(err, &pe), "got %v", err)
}

func TestRawQueries(t *testing.T) {
	p := newFakePlug(t, func(req Value) reply {
		if _, ok := req.Get("time", "get_time"); ok {
			return reply{body: `{"time":{"get_time":{"year":2026,"month":10,"mday":19,"hour":13,"min":50,"sec":0,"err_code":0}}}`}
		}
		return reply{body: `{"schedule":{"get_rules":{"rule_list":[],"enable":0,"version":2,"err_code":0}}}`}
	})
	c := newTestClient(t, p)

	tm, err := c.Time()
	require.NoError(t, err)
	year, ok := tm.Get("year")
	require.True(t, ok)
	y, _ := year.Int()
	assert.Equal(t, 2026, y)

	rules, err := c.Schedule()
	require.NoError(t, err)
	_, ok = rules.Get("rule_list")
	assert.True(t, ok)
}

func TestCallTracing(t *testing.T) {
	state := &plugState{}
	p := newFakePlug(t, state.handle)

	var buf bytes.Buffer
	c := newTestClient(t, p, WithLogger(log.New(&buf, "", 0)))

	_, err := c.SystemInfo()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "-> system.get_sysinfo")
	assert.Contains(t, buf.String(), `"relay_state":0`)
}

func TestDesired(t *testing.T) {
	v, err := Desired(false, false)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = Desired(true, false)
	require.NoError(t, err)
	assert.True(t, *v)

	v, err = Desired(false, true)
	require.NoError(t, err)
	assert.False(t, *v)

	_, err = Desired(true, true)
	assert.ErrorIs(t, err, ErrConflictingState)
}
