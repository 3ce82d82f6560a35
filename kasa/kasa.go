package kasa

import (
	"log"
	"time"
)

// Client talks to a single HS100/HS110 plug. It holds no connection: every
// operation dials, exchanges one command and closes again, so a Client can
// be shared freely.
type Client struct {
	addr    Address
	timeout time.Duration
	scan    ScanPolicy
	logger  *log.Logger
}

type Option func(*Client)

// WithTimeout bounds connect, write and read of every exchange.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithScanPolicy(p ScanPolicy) Option {
	return func(c *Client) {
		c.scan = p
	}
}

// WithLogger enables tracing of the plaintext requests and replies.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func New(addr string, opts ...Option) (*Client, error) {
	a, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}

	c := &Client{addr: a, scan: DefaultScanPolicy}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Addr() Address {
	return c.addr
}

// Call performs one connect, request, response, close cycle. It never retries.
func (c *Client) Call(cmd Command) (Value, error) {
	con, err := dial(c.addr, c.timeout)
	if err != nil {
		return Value{}, err
	}
	defer con.Close()

	if c.logger != nil {
		c.logger.Printf("%s -> %s", c.addr, cmd)
	}

	v, raw, err := call(con, cmd, c.timeout)
	if err != nil {
		return Value{}, err
	}

	if c.logger != nil {
		c.logger.Printf("%s <- %s", c.addr, raw)
	}

	return v, nil
}

func (c *Client) exec(cmd Command) (Value, error) {
	resp, err := c.Call(cmd)
	if err != nil {
		return Value{}, err
	}

	return Result(resp, cmd)
}

func (c *Client) SystemInfo() (*SysInfo, error) {
	resp, err := c.Call(GetSysinfo())
	if err != nil {
		return nil, err
	}

	return ParseSysInfo(resp)
}

// Alias is the name given to the plug during setup.
func (c *Client) Alias() (string, error) {
	cmd := GetSysinfo()
	res, err := c.exec(cmd)
	if err != nil {
		return "", err
	}

	return fieldText(res, cmd, "alias")
}

func (c *Client) CloudInfo() (*CloudInfo, error) {
	resp, err := c.Call(GetCloudInfo())
	if err != nil {
		return nil, err
	}

	return ParseCloudInfo(resp)
}

func (c *Client) Emeter() (*Emeter, error) {
	resp, err := c.Call(GetRealtime())
	if err != nil {
		return nil, err
	}

	return ParseEmeter(resp)
}

// Relay switches the relay when on is non nil and then reports the state
// read back from the plug, never the requested one.
func (c *Client) Relay(on *bool) (PowerState, error) {
	if on != nil {
		if _, err := c.exec(SetRelayState(*on)); err != nil {
			return PowerOff, err
		}
	}

	info, err := c.SystemInfo()
	if err != nil {
		return PowerOff, err
	}

	return info.Power(), nil
}

// Led works like Relay for the indicator LED.
func (c *Client) Led(on *bool) (LedState, error) {
	if on != nil {
		if _, err := c.exec(SetLedOff(!*on)); err != nil {
			return LedOff, err
		}
	}

	info, err := c.SystemInfo()
	if err != nil {
		return LedOff, err
	}

	return info.Led(), nil
}

// Reboot asks the plug to restart after delay seconds, or at once when delay
// is nil. The plug drops the connection once it has acknowledged, so only its
// reply counts.
func (c *Client) Reboot(delay *uint) error {
	_, err := c.exec(Reboot(seconds(delay)))
	return err
}

// FactoryReset wipes the plug's configuration after delay seconds, or at once
// when delay is nil.
func (c *Client) FactoryReset(delay *uint) error {
	_, err := c.exec(Reset(seconds(delay)))
	return err
}

func seconds(delay *uint) uint {
	if delay == nil {
		return 0
	}
	return *delay
}

func (c *Client) Time() (Value, error) {
	return c.exec(GetTime())
}

func (c *Client) Schedule() (Value, error) {
	return c.exec(GetScheduleRules())
}

func (c *Client) Countdown() (Value, error) {
	return c.exec(GetCountdownRules())
}

func (c *Client) Antitheft() (Value, error) {
	return c.exec(GetAntitheftRules())
}

// Desired turns a pair of --on/--off style flags into the tri-state taken by
// Relay and Led: nil means query only.
func Desired(on, off bool) (*bool, error) {
	switch {
	case on && off:
		return nil, ErrConflictingState
	case on:
		v := true
		return &v, nil
	case off:
		v := false
		return &v, nil
	}
	return nil, nil
}
