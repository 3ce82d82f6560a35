package mqtt

import (
	"fmt"
	"log"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"kasa-client/config"
)

// This is the default message handler, it just logs the topic and message
var defaultHandler paho.MessageHandler = func(client paho.Client, msg paho.Message) {
	log.Printf("Unhandled message on %s: %s\n", msg.Topic(), msg.Payload())
}

func New(cfg config.MQTT) (paho.Client, error) {
	// Several bridges may share a broker, keep the client ids apart
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	opts := paho.NewClientOptions().AddBroker(fmt.Sprintf("%s:%s", cfg.Host, cfg.Port))
	opts.SetClientID(clientID)
	opts.SetDefaultPublishHandler(defaultHandler)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}

	return client, nil
}
