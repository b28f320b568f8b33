package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/infrastructure/config"
	"github.com/panoptes/pocs-core/internal/infrastructure/mqtt"
	"github.com/panoptes/pocs-core/internal/messaging"
)

var sendCmd = &cobra.Command{
	Use:   "send <park|shutdown>",
	Short: "Send an operator command to a running unit",
	Long: `Publish a command on the POCS-CMD channel of the unit's command relay.

The unit applies at most one command per control-loop cycle:
  park      interrupt the night and park the mount
  shutdown  power the unit down`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(command.KindPark), string(command.KindShutdown)},
	RunE:      runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	kind := command.ParseKind(args[0])
	if kind == command.KindUnknown {
		return fmt.Errorf("unknown command %q: want park or shutdown", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	brokerCfg := commandBroker(cfg)
	client, err := mqtt.Connect(brokerCfg)
	if err != nil {
		return fmt.Errorf("connecting to command relay: %w", err)
	}

	pub := messaging.NewPublisher(client)
	defer pub.Close() //nolint:errcheck // one-shot client

	if err := pub.Send(messaging.ChannelCommand, string(kind)); err != nil {
		return fmt.Errorf("sending %s: %w", kind, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", kind, mqtt.BrokerURL(brokerCfg))
	return nil
}

// commandBroker returns the MQTT settings for the front of the command relay.
func commandBroker(cfg *config.Config) config.MQTTConfig {
	m := cfg.MQTT
	m.Broker.Host = cfg.Messaging.Host
	m.Broker.Port = cfg.Messaging.CmdPort
	m.Broker.TLS = false
	m.Broker.ClientID = fmt.Sprintf("%s-send-%d", cfg.MQTT.Broker.ClientID, os.Getpid())
	return m
}
