package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"kasa-client/device"
	"kasa-client/kasa"
)

// Publisher is the part of paho.Client the bridge publishes through.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

type Message struct {
	State   bool  `json:"state"`
	Updated int64 `json:"updated"`
}

// Bridge exposes outlets on MQTT:
//
//	<prefix>/<room>/<name>/state   retained Message, read back from the plug
//	<prefix>/<room>/<name>/emeter  latest emeter reading
//	<prefix>/<room>/<name>/set     ON/OFF, 1/0, true/false or a Message
type Bridge struct {
	client  Publisher
	prefix  string
	devices device.Devices

	// OnChange is called after a set command changed the relay state
	OnChange func(name device.InternalName, state kasa.PowerState)
}

func NewBridge(client Publisher, prefix string, devices device.Devices) *Bridge {
	return &Bridge{client: client, prefix: strings.TrimSuffix(prefix, "/"), devices: devices}
}

func (b *Bridge) topic(name device.InternalName, suffix string) string {
	return fmt.Sprintf("%s/%s/%s", b.prefix, name, suffix)
}

// SetTopic is the wildcard subscription covering every outlet.
func (b *Bridge) SetTopic() string {
	return b.prefix + "/#"
}

func (b *Bridge) Subscribe(client paho.Client) error {
	if token := client.Subscribe(b.SetTopic(), 1, b.HandleSet); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (b *Bridge) Unsubscribe(client paho.Client) {
	if token := client.Unsubscribe(b.SetTopic()); token.Wait() && token.Error() != nil {
		log.Println(token.Error())
	}
}

func (b *Bridge) nameFromTopic(topic string) (device.InternalName, bool) {
	rest := strings.TrimPrefix(topic, b.prefix+"/")
	if rest == topic || !strings.HasSuffix(rest, "/set") {
		return "", false
	}

	return device.InternalName(strings.TrimSuffix(rest, "/set")), true
}

func ParseState(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}

	var message Message
	if err := json.Unmarshal(payload, &message); err != nil {
		return false, fmt.Errorf("invalid state payload %q", payload)
	}

	return message.State, nil
}

// HandleSet switches the outlet and publishes the state the plug reports afterwards.
func (b *Bridge) HandleSet(_ paho.Client, msg paho.Message) {
	name, ok := b.nameFromTopic(msg.Topic())
	if !ok {
		return
	}

	outlet, err := device.GetDevice[device.OnOff](b.devices, name)
	if err != nil {
		log.Println(err)
		return
	}

	on, err := ParseState(msg.Payload())
	if err != nil {
		log.Println(err)
		return
	}

	before, err := outlet.GetOnOff()
	if err != nil {
		log.Printf("Failed to query %s: %s\n", name, err)
		return
	}

	state, err := outlet.SetOnOff(on)
	if err != nil {
		log.Printf("Failed to set relay state of %s: %s\n", name, err)
		return
	}

	if bool(state) != on {
		log.Printf("%s did not apply the requested state, it is %s\n", name, state)
	}

	b.State(name, state)

	if state != before && b.OnChange != nil {
		b.OnChange(name, state)
	}
}

func (b *Bridge) publish(topic string, retained bool, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Println(err)
		return
	}

	token := b.client.Publish(topic, 1, retained, msg)
	if token.Wait() && token.Error() != nil {
		log.Println(token.Error())
	}
}

// monitor.Sink
func (b *Bridge) State(name device.InternalName, state kasa.PowerState) {
	b.publish(b.topic(name, "state"), true, Message{
		State:   bool(state),
		Updated: time.Now().UnixMilli(),
	})
}

// monitor.Sink
func (b *Bridge) Emeter(name device.InternalName, e *kasa.Emeter) {
	b.publish(b.topic(name, "emeter"), false, e)
}
