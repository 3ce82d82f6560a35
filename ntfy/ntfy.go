package ntfy

import (
	"fmt"
	"net/http"
	"strings"

	"kasa-client/device"
	"kasa-client/kasa"
)

type Notify struct {
	topic  string
	server string
	client *http.Client
}

func New(topic string) *Notify {
	return &Notify{topic: topic, server: "https://ntfy.sh", client: http.DefaultClient}
}

// WithServer points the notifier at a self hosted ntfy instance.
func (n *Notify) WithServer(url string) *Notify {
	n.server = strings.TrimSuffix(url, "/")
	return n
}

func (n *Notify) StateChanged(name device.InternalName, state kasa.PowerState) error {
	description := fmt.Sprintf("%s is %s", name.Name(), state)
	if room := name.Room(); room != "" {
		description = fmt.Sprintf("%s in %s is %s", name.Name(), room, state)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/%s", n.server, n.topic), strings.NewReader(description))
	if err != nil {
		return err
	}

	req.Header.Set("Title", "Outlet")
	req.Header.Set("Tags", "electric_plug")
	req.Header.Set("Priority", "1")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy: unexpected status %d", resp.StatusCode)
	}

	return nil
}
