// Package main provides iox2ctl, the operator-facing CLI for inspecting
// and managing services on a single host. It carries no business logic
// of its own: every subcommand calls straight into pkg/service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/pkg/config"
	"github.com/iox2go/iox2/pkg/service"
)

var rootPath string
var configPath string

func main() {
	root := &cobra.Command{
		Use:           "iox2ctl",
		Short:         "Inspect and manage publish-subscribe services",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults built in if unset)")
	root.PersistentFlags().StringVar(&rootPath, "root", "", "override global.root_path from the loaded config")

	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage services",
	}
	serviceCmd.AddCommand(newServiceCreateCmd(), newServiceOpenCmd(), newServiceListCmd(), newServiceRmCmd())
	root.AddCommand(serviceCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	}
	if rootPath != "" {
		cfg.Global.RootPath = rootPath
	}
	return cfg, nil
}

func newRegistry() (*service.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return service.NewRegistry(cfg, nil), nil
}

func newServiceCreateCmd() *cobra.Command {
	var payloadType string
	var payloadSize, payloadAlign uint64
	var maxPublishers, maxSubscribers, maxNodes, historySize uint32

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new publish-subscribe service",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			r, err := newRegistry()
			if err != nil {
				return err
			}
			b := service.NewBuilder(r, args[0])
			if payloadType != "" {
				b = b.PayloadType(payloadType, payloadSize, payloadAlign)
			}
			if maxPublishers > 0 {
				b = b.MaxPublishers(maxPublishers)
			}
			if maxSubscribers > 0 {
				b = b.MaxSubscribers(maxSubscribers)
			}
			if maxNodes > 0 {
				b = b.MaxNodes(maxNodes)
			}
			if historySize > 0 {
				b = b.HistorySize(historySize)
			}
			svc, err := b.Create()
			if err != nil {
				return err
			}
			defer svc.Drop()
			fmt.Printf("created %s\n", svc.StaticConfig().ServiceName)
			return nil
		},
	}
	cmd.Flags().StringVar(&payloadType, "payload-type", "", "payload type name")
	cmd.Flags().Uint64Var(&payloadSize, "payload-size", 8, "payload size in bytes")
	cmd.Flags().Uint64Var(&payloadAlign, "payload-align", 8, "payload alignment in bytes")
	cmd.Flags().Uint32Var(&maxPublishers, "max-publishers", 0, "override defaults.max_publishers")
	cmd.Flags().Uint32Var(&maxSubscribers, "max-subscribers", 0, "override defaults.max_subscribers")
	cmd.Flags().Uint32Var(&maxNodes, "max-nodes", 0, "override defaults.max_nodes")
	cmd.Flags().Uint32Var(&historySize, "history-size", 0, "override defaults.publisher_history_size")
	return cmd
}

func newServiceOpenCmd() *cobra.Command {
	var nodeName string
	cmd := &cobra.Command{
		Use:   "open <name>",
		Short: "Attach a node to an existing service and report its static config",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			r, err := newRegistry()
			if err != nil {
				return err
			}
			svc, err := service.NewBuilder(r, args[0]).Open(nodeName)
			if err != nil {
				return err
			}
			defer svc.Drop()
			sc := svc.StaticConfig()
			fmt.Printf("%s: publishers=%d subscribers=%d nodes=%d history=%d\n",
				sc.ServiceName, sc.MaxPublishers, sc.MaxSubscribers, sc.MaxNodes, sc.HistorySize)
			return nil
		},
	}
	cmd.Flags().StringVar(&nodeName, "node", "iox2ctl", "name to register the attaching node under")
	return cmd
}

func newServiceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every committed service",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			r, err := newRegistry()
			if err != nil {
				return err
			}
			infos, err := r.List()
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Printf("%s\t%s\n", info.Name, info.Pattern)
			}
			return nil
		},
	}
}

func newServiceRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Force-remove a service's static storage, for cleanup after an unclean exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			r, err := newRegistry()
			if err != nil {
				return err
			}
			if err := r.ForceRemove(args[0], iox2.MessagingPatternPublishSubscribe); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}
