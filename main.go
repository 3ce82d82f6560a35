package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"

	"kasa-client/api"
	"kasa-client/config"
	"kasa-client/device"
	"kasa-client/kasa"
	"kasa-client/monitor"
	"kasa-client/mqtt"
	"kasa-client/ntfy"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// serve runs the long lived bridge for every configured outlet.
func serve(cfg config.Config) error {
	devices, err := device.Outlets(cfg.Outlets, cfg.Kasa.Options()...)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no outlets configured")
	}

	log.Println("Outlets:")
	pretty.Logln(cfg.Outlets)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ntfy.sh
	var notify *ntfy.Notify
	if cfg.Ntfy.Topic != "" {
		notify = ntfy.New(cfg.Ntfy.Topic)
	}
	changed := func(name device.InternalName, state kasa.PowerState) {
		log.Printf("%s is now %s\n", name, state)
		if notify == nil {
			return
		}
		if err := notify.StateChanged(name, state); err != nil {
			log.Println(err)
		}
	}

	// HTTP
	srv := api.New(devices)
	defer srv.Close()
	sinks := []monitor.Sink{srv}

	// MQTT
	if cfg.MQTT.Enabled() {
		client, err := mqtt.New(cfg.MQTT)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		bridge := mqtt.NewBridge(client, cfg.MQTT.Prefix, devices)
		if err := bridge.Subscribe(client); err != nil {
			return err
		}
		defer bridge.Unsubscribe(client)

		bridge.OnChange = func(name device.InternalName, state kasa.PowerState) {
			changed(name, state)
			srv.State(name, state)
		}
		srv.OnChange = func(name device.InternalName, state kasa.PowerState) {
			changed(name, state)
			bridge.State(name, state)
		}
		sinks = append(sinks, bridge)
	} else {
		srv.OnChange = changed
	}

	// Poll loop
	go monitor.New(devices, cfg.Poll.Interval, sinks...).Run(ctx)

	httpServer := http.Server{
		Addr:    cfg.HTTP.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()

		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdown)
	}()

	log.Printf("Starting server on %s (PID: %d)\n", cfg.HTTP.Listen, os.Getpid())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
