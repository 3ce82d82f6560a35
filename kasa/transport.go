package kasa

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const DefaultPort = 9999

// Address identifies the plug for one exchange.
type Address struct {
	Host string
	Port int
}

// ParseAddress accepts "host", "host:port" or "[v6]:port".
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("smartplug host address is not provided")
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// No port, or a bare IPv6 address
		return Address{Host: strings.Trim(s, "[]"), Port: DefaultPort}, nil
	}

	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return Address{}, fmt.Errorf("invalid port %q", port)
	}

	return Address{Host: host, Port: p}, nil
}

func (a Address) String() string {
	port := a.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(port))
}

// dial opens the connection used for exactly one exchange. A zero timeout
// means no deadline.
func dial(addr Address, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	con, err := d.Dial("tcp", addr.String())
	if err != nil {
		return nil, &ConnectError{Addr: addr.String(), Err: err}
	}

	return con, nil
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// roundTrip writes one framed request and reads one framed response.
func roundTrip(con net.Conn, request []byte, timeout time.Duration) ([]byte, error) {
	if err := con.SetWriteDeadline(deadline(timeout)); err != nil {
		return nil, classify("set write deadline", err)
	}
	if _, err := con.Write(Encode(request)); err != nil {
		return nil, classify("write", err)
	}

	if err := con.SetReadDeadline(deadline(timeout)); err != nil {
		return nil, classify("set read deadline", err)
	}
	return Decode(con)
}

// call sends cmd over con and parses the reply into a Value tree.
func call(con net.Conn, cmd Command, timeout time.Duration) (Value, []byte, error) {
	b, err := json.Marshal(cmd)
	if err != nil {
		return Value{}, nil, err
	}

	resp, err := roundTrip(con, b, timeout)
	if err != nil {
		return Value{}, nil, err
	}

	v, err := ParseValue(resp)
	return v, resp, err
}
