package kasa

import (
	"encoding/json"
	"errors"
)

type PowerState bool

const (
	PowerOff PowerState = false
	PowerOn  PowerState = true
)

func (s PowerState) String() string {
	if s {
		return "ON"
	}
	return "OFF"
}

func (s PowerState) Not() PowerState {
	return !s
}

type LedState bool

const (
	LedOff LedState = false
	LedOn  LedState = true
)

func (s LedState) String() string {
	if s {
		return "ON"
	}
	return "OFF"
}

func (s LedState) Not() LedState {
	return !s
}

type HardwareVersion string

const (
	HardwareV1 HardwareVersion = "1.0"
	HardwareV2 HardwareVersion = "2.0"
)

func (h HardwareVersion) Supported() bool {
	return h == HardwareV1 || h == HardwareV2
}

// SysInfo is the result of system.get_sysinfo. Raw keeps every field the
// firmware sent and is what gets serialized back out.
type SysInfo struct {
	Alias      string  `json:"alias"`
	DevName    string  `json:"dev_name"`
	Model      string  `json:"model"`
	Type       string  `json:"type"`
	HwVer      string  `json:"hw_ver"`
	SwVer      string  `json:"sw_ver"`
	Mac        string  `json:"mac"`
	DeviceID   string  `json:"deviceId"`
	HwID       string  `json:"hwId"`
	OemID      string  `json:"oemId"`
	Feature    string  `json:"feature"`
	ActiveMode string  `json:"active_mode"`
	RelayState int     `json:"relay_state"`
	LedOff     int     `json:"led_off"`
	OnTime     int64   `json:"on_time"`
	RSSI       int     `json:"rssi"`
	Updating   int     `json:"updating"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`

	Raw Value `json:"-"`
}

func (s SysInfo) Power() PowerState {
	return s.RelayState == 1
}

func (s SysInfo) Led() LedState {
	return s.LedOff == 0
}

func (s SysInfo) HardwareVersion() HardwareVersion {
	return HardwareVersion(s.HwVer)
}

func (s SysInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw)
}

// ParseSysInfo requires the two fields every toggle depends on.
func ParseSysInfo(resp Value) (*SysInfo, error) {
	cmd := GetSysinfo()
	res, err := Result(resp, cmd)
	if err != nil {
		return nil, err
	}

	var info SysInfo
	if err := decodeResult(res, cmd, &info); err != nil {
		return nil, err
	}
	if _, err := fieldInt(res, cmd, "relay_state"); err != nil {
		return nil, err
	}
	if _, err := fieldInt(res, cmd, "led_off"); err != nil {
		return nil, err
	}
	info.Raw = res

	return &info, nil
}

// CloudInfo is the result of cnCloud.get_info.
type CloudInfo struct {
	Binded        int    `json:"binded"`
	CldConnection int    `json:"cld_connection"`
	Server        string `json:"server"`
	Username      string `json:"username"`
	FwDlPage      string `json:"fwDlPage"`
	TcspStatus    int    `json:"tcspStatus"`

	Raw Value `json:"-"`
}

func (c CloudInfo) Bound() bool {
	return c.Binded == 1
}

func (c CloudInfo) Connected() bool {
	return c.CldConnection == 1
}

func (c CloudInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Raw)
}

func ParseCloudInfo(resp Value) (*CloudInfo, error) {
	cmd := GetCloudInfo()
	res, err := Result(resp, cmd)
	if err != nil {
		return nil, err
	}

	var info CloudInfo
	if err := decodeResult(res, cmd, &info); err != nil {
		return nil, err
	}
	info.Raw = res

	return &info, nil
}

type AccessPoint struct {
	SSID    string `json:"ssid"`
	KeyType int    `json:"key_type"`
}

// ParseAccessPoints returns the ap_list of a netif.get_scaninfo result.
func ParseAccessPoints(resp Value) ([]AccessPoint, error) {
	cmd := GetScanInfo(false, 0)
	res, err := Result(resp, cmd)
	if err != nil {
		return nil, err
	}

	list, ok := res.Get("ap_list")
	if !ok {
		return nil, &ResponseError{Kind: MissingField, Module: cmd.Module, Action: cmd.Action, Field: "ap_list"}
	}
	if _, ok := list.Array(); !ok {
		return nil, &ResponseError{Kind: MistypedField, Module: cmd.Module, Action: cmd.Action, Field: "ap_list"}
	}

	var aps []AccessPoint
	if err := decodeResult(list, cmd, &aps); err != nil {
		return nil, err
	}

	return aps, nil
}

// ParseRaw checks err_code and returns the result object as is.
func ParseRaw(resp Value, cmd Command) (Value, error) {
	return Result(resp, cmd)
}

func decodeResult(res Value, cmd Command, out any) error {
	err := res.Decode(out)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ResponseError{Kind: MistypedField, Module: cmd.Module, Action: cmd.Action, Field: typeErr.Field}
	}
	return &ProtocolError{Reason: "decode " + cmd.String(), Err: err}
}
