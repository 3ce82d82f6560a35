package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"kasa-client/config"
	"kasa-client/kasa"
)

var (
	configPath string
	host       string
	port       int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "kasa-client",
	Short:         "TP-Link Kasa HS100/HS110 client",
	Long:          `Query and control TP-Link Kasa HS100/HS110 smart plugs on the local network.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "Path to the config file")
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "", "Hostname or an IP address of the smartplug")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "TCP port number (default 9999)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Trace requests and replies to stderr")

	ledCmd.Flags().BoolP("on", "1", false, "Turn LED on")
	ledCmd.Flags().BoolP("off", "0", false, "Turn LED off")
	ledCmd.MarkFlagsMutuallyExclusive("on", "off")

	relayCmd.Flags().BoolP("on", "1", false, "Switch the relay on")
	relayCmd.Flags().BoolP("off", "0", false, "Switch the relay off")
	relayCmd.MarkFlagsMutuallyExclusive("on", "off")

	rebootCmd.Flags().Uint("delay", 1, "Delay in seconds")
	resetCmd.Flags().Uint("delay", 1, "Delay in seconds")

	wifiCmd.Flags().Bool("scan", false, "Scan for access points instead of listing the cached results")

	rootCmd.AddCommand(infoCmd, ledCmd, relayCmd, cloudCmd, emeterCmd, wifiCmd,
		rebootCmd, resetCmd, timeCmd, scheduleCmd, countdownCmd, antitheftCmd, serveCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	if host != "" {
		cfg.Kasa.Host = host
	}
	if port != 0 {
		cfg.Kasa.Port = port
	}

	return cfg, nil
}

func client() (*kasa.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	addr := cfg.Kasa.Address()
	if addr == "" {
		return nil, errors.New("smartplug host address is not provided (use --host or KASA_HOST)")
	}

	opts := cfg.Kasa.Options()
	if verbose {
		opts = append(opts, kasa.WithLogger(log.New(os.Stderr, "kasa: ", log.LstdFlags)))
	}

	return kasa.New(addr, opts...)
}

func printJSON(w io.Writer, v any) error {
	if verbose {
		pretty.Logln(v)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func onOff(cmd *cobra.Command) (*bool, error) {
	on, _ := cmd.Flags().GetBool("on")
	off, _ := cmd.Flags().GetBool("off")

	return kasa.Desired(on, off)
}

// jsonCommand builds a subcommand printing the result of one query as JSON.
func jsonCommand[T any](use, short string, query func(*kasa.Client) (T, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}

			v, err := query(c)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}

var (
	infoCmd      = jsonCommand("info", "Get smartplug system information", (*kasa.Client).SystemInfo)
	cloudCmd     = jsonCommand("cloudinfo", "Get cloud binding information", (*kasa.Client).CloudInfo)
	emeterCmd    = jsonCommand("emeter", "Get energy meter readings", (*kasa.Client).Emeter)
	timeCmd      = jsonCommand("time", "Get the smartplug clock", (*kasa.Client).Time)
	scheduleCmd  = jsonCommand("schedule", "List schedule rules", (*kasa.Client).Schedule)
	countdownCmd = jsonCommand("countdown", "List countdown rules", (*kasa.Client).Countdown)
	antitheftCmd = jsonCommand("antitheft", "List anti-theft rules", (*kasa.Client).Antitheft)
)

var wifiCmd = &cobra.Command{
	Use:   "wifi",
	Short: "List Wi-Fi access points seen by the smartplug",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}

		var aps []kasa.AccessPoint
		if scan, _ := cmd.Flags().GetBool("scan"); scan {
			aps, err = c.WifiScan()
		} else {
			aps, err = c.WifiList()
		}
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), aps)
	},
}

var ledCmd = &cobra.Command{
	Use:   "led",
	Short: "Manage LED state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := onOff(cmd)
		if err != nil {
			return err
		}

		c, err := client()
		if err != nil {
			return err
		}

		state, err := c.Led(on)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "LED is %s\n", state)
		return nil
	},
}

var relayCmd = &cobra.Command{
	Use:     "relay",
	Aliases: []string{"power"},
	Short:   "Manage power relay state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := onOff(cmd)
		if err != nil {
			return err
		}

		c, err := client()
		if err != nil {
			return err
		}

		state, err := c.Relay(on)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Power is %s\n", state)
		return nil
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the smartplug",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, _ := cmd.Flags().GetUint("delay")

		c, err := client()
		if err != nil {
			return err
		}

		if err := c.Reboot(&delay); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Rebooting in %ds\n", delay)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Factory reset the smartplug",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, _ := cmd.Flags().GetUint("delay")

		c, err := client()
		if err != nil {
			return err
		}

		if err := c.FactoryReset(&delay); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Resetting to factory defaults in %ds\n", delay)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the configured outlets over HTTP and MQTT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		return serve(cfg)
	},
}
