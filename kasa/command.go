package kasa

import "encoding/json"

// Command addresses one action of one device module. It serializes to
// {"<module>":{"<action>":{<params>}}}.
type Command struct {
	Module string
	Action string
	Params map[string]any
}

func (c Command) MarshalJSON() ([]byte, error) {
	params := c.Params
	if params == nil {
		params = map[string]any{}
	}

	return json.Marshal(map[string]any{
		c.Module: map[string]any{c.Action: params},
	})
}

func (c Command) String() string {
	return c.Module + "." + c.Action
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// system

func GetSysinfo() Command {
	return Command{Module: "system", Action: "get_sysinfo"}
}

func SetRelayState(on bool) Command {
	return Command{Module: "system", Action: "set_relay_state", Params: map[string]any{"state": boolToInt(on)}}
}

// SetLedOff uses the firmware's inverted flag: off=1 turns the LED off.
func SetLedOff(off bool) Command {
	return Command{Module: "system", Action: "set_led_off", Params: map[string]any{"off": boolToInt(off)}}
}

func Reboot(delay uint) Command {
	return Command{Module: "system", Action: "reboot", Params: map[string]any{"delay": delay}}
}

func Reset(delay uint) Command {
	return Command{Module: "system", Action: "reset", Params: map[string]any{"delay": delay}}
}

// cnCloud

func GetCloudInfo() Command {
	return Command{Module: "cnCloud", Action: "get_info"}
}

// netif

// GetScanInfo with refresh set starts a new radio scan, timeout is in seconds.
func GetScanInfo(refresh bool, timeout uint) Command {
	params := map[string]any{"refresh": boolToInt(refresh)}
	if refresh && timeout > 0 {
		params["timeout"] = timeout
	}

	return Command{Module: "netif", Action: "get_scaninfo", Params: params}
}

// emeter

func GetRealtime() Command {
	return Command{Module: "emeter", Action: "get_realtime"}
}

// time, schedule, count_down, anti_theft

func GetTime() Command {
	return Command{Module: "time", Action: "get_time"}
}

func GetScheduleRules() Command {
	return Command{Module: "schedule", Action: "get_rules"}
}

func GetCountdownRules() Command {
	return Command{Module: "count_down", Action: "get_rules"}
}

func GetAntitheftRules() Command {
	return Command{Module: "anti_theft", Action: "get_rules"}
}

// Result extracts the result object nested under module.action in resp and
// checks its err_code. A missing err_code counts as success.
//
// Plugs answer an unsupported module or method with an err_code one or two
// levels up, e.g. {"emeter":{"err_code":-1}} or {"err_code":-2}. Those are
// reported as DeviceError with the plug's code.
func Result(resp Value, cmd Command) (Value, error) {
	res, ok := resp.Get(cmd.Module, cmd.Action)
	if !ok {
		for _, path := range [][]string{{cmd.Module, "err_code"}, {"err_code"}} {
			code, present := resp.Get(path...)
			if !present {
				continue
			}
			if errCode, ok := code.Int(); ok && errCode != 0 {
				return Value{}, &ResponseError{Kind: DeviceError, Module: cmd.Module, Action: cmd.Action, Code: errCode}
			}
		}
		return Value{}, &ResponseError{Kind: MissingField, Module: cmd.Module, Action: cmd.Action, Field: cmd.String()}
	}
	if _, ok := res.Object(); !ok {
		return Value{}, &ResponseError{Kind: MistypedField, Module: cmd.Module, Action: cmd.Action, Field: cmd.String()}
	}

	code, present := res.Get("err_code")
	if !present {
		return res, nil
	}

	errCode, ok := code.Int()
	if !ok {
		return Value{}, &ResponseError{Kind: MistypedField, Module: cmd.Module, Action: cmd.Action, Field: "err_code"}
	}
	if errCode != 0 {
		return Value{}, &ResponseError{Kind: DeviceError, Module: cmd.Module, Action: cmd.Action, Code: errCode}
	}

	return res, nil
}

func fieldInt(res Value, cmd Command, field string) (int, error) {
	v, ok := res.Get(field)
	if !ok {
		return 0, &ResponseError{Kind: MissingField, Module: cmd.Module, Action: cmd.Action, Field: field}
	}
	i, ok := v.Int()
	if !ok {
		return 0, &ResponseError{Kind: MistypedField, Module: cmd.Module, Action: cmd.Action, Field: field}
	}
	return i, nil
}

func fieldText(res Value, cmd Command, field string) (string, error) {
	v, ok := res.Get(field)
	if !ok {
		return "", &ResponseError{Kind: MissingField, Module: cmd.Module, Action: cmd.Action, Field: field}
	}
	s, ok := v.Text()
	if !ok {
		return "", &ResponseError{Kind: MistypedField, Module: cmd.Module, Action: cmd.Action, Field: field}
	}
	return s, nil
}
