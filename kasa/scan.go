package kasa

import (
	"errors"
	"time"

	"github.com/jpillora/backoff"
)

// ScanPolicy bounds how long WifiScan waits for the radio scan to finish.
type ScanPolicy struct {
	// Attempts is the number of result polls after the scan was triggered.
	Attempts int
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// Timeout is passed to the plug as the scan duration, in seconds.
	Timeout uint
}

var DefaultScanPolicy = ScanPolicy{
	Attempts:   8,
	MinBackoff: 500 * time.Millisecond,
	MaxBackoff: 4 * time.Second,
	Timeout:    3,
}

// WifiList returns the access points from the plug's last scan without
// starting a new one.
func (c *Client) WifiList() ([]AccessPoint, error) {
	resp, err := c.Call(GetScanInfo(false, 0))
	if err != nil {
		return nil, err
	}

	return ParseAccessPoints(resp)
}

// WifiScan starts a radio scan and polls for its results. The trigger reply
// only tells us that scanning started.
//
// An empty ap_list is taken as "still scanning", so a scan that really finds
// no access points ends in a ScanNotReady ResponseError once the policy's
// attempts are used up.
func (c *Client) WifiScan() ([]AccessPoint, error) {
	trigger := GetScanInfo(true, c.scan.Timeout)
	resp, err := c.Call(trigger)
	if err != nil {
		return nil, err
	}
	if _, err := Result(resp, trigger); err != nil {
		return nil, err
	}
	if aps, err := ParseAccessPoints(resp); err == nil && len(aps) > 0 {
		return aps, nil
	}

	b := &backoff.Backoff{
		Min:    c.scan.MinBackoff,
		Max:    c.scan.MaxBackoff,
		Factor: 2,
	}

	code := 0
	for i := 0; i < c.scan.Attempts; i++ {
		time.Sleep(b.Duration())

		aps, err := c.WifiList()
		if err == nil && len(aps) > 0 {
			return aps, nil
		}

		// Only "not there yet" is worth another poll
		var re *ResponseError
		if err != nil && !errors.As(err, &re) {
			return nil, err
		}
		if re != nil {
			code = re.Code
		}

		if c.logger != nil {
			c.logger.Printf("%s scan results not ready (attempt %d/%d)", c.addr, i+1, c.scan.Attempts)
		}
	}

	return nil, &ResponseError{Kind: ScanNotReady, Module: trigger.Module, Action: trigger.Action, Code: code}
}
