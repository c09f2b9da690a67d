package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clusterbay/pacelink/pkg/metrics"
)

var addVIPCmd = &cobra.Command{
	Use:   "add-vip <service> <address>",
	Short: "Add a virtual IP resource for a service",
	Long: `Add a virtual IP resource for a service.

Examples:
  # VIP bound to a specific interface
  pacelink add-vip mysql 10.110.5.43 --nic ens3 --cidr 24

  # Unbound VIP; the resource id is derived from the address
  pacelink add-vip mysql 10.110.5.43`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nic, _ := cmd.Flags().GetString("nic")
		cidr, _ := cmd.Flags().GetString("cidr")

		mgr, closeFn, err := openManager()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := mgr.AddVIP(args[0], args[1], nic, cidr); err != nil {
			return err
		}
		fmt.Printf("✓ Added VIP %s for %s\n", args[1], args[0])
		return nil
	},
}

var addDNSHACmd = &cobra.Command{
	Use:   "add-dnsha <service> <ip> <fqdn> <endpoint-type>",
	Short: "Add a DNS high-availability resource for a service",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeFn, err := openManager()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := mgr.AddDNSHA(args[0], args[1], args[2], args[3]); err != nil {
			return err
		}
		fmt.Printf("✓ Added DNS entry %s for %s\n", args[2], args[0])
		return nil
	},
}

var addInitServiceCmd = &cobra.Command{
	Use:   "add-init-service <service> <init-name>",
	Short: "Put an init system service under cluster management",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		clone, _ := cmd.Flags().GetBool("clone")

		mgr, closeFn, err := openManager()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := mgr.AddInitService(args[0], args[1], clone); err != nil {
			return err
		}
		fmt.Printf("✓ Added init service %s for %s\n", args[1], args[0])
		return nil
	},
}

var addSystemdServiceCmd = &cobra.Command{
	Use:   "add-systemd-service <service> <systemd-name>",
	Short: "Put a systemd service under cluster management",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		clone, _ := cmd.Flags().GetBool("clone")

		mgr, closeFn, err := openManager()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := mgr.AddSystemdService(args[0], args[1], clone); err != nil {
			return err
		}
		fmt.Printf("✓ Added systemd service %s for %s\n", args[1], args[0])
		return nil
	},
}

var deleteResourceCmd = &cobra.Command{
	Use:   "delete-resource <id>...",
	Short: "Mark resources for deletion on the peer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeFn, err := openManager()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := mgr.DeleteResource(args...); err != nil {
			return err
		}
		fmt.Printf("✓ Marked %d resource(s) for deletion\n", len(args))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored resource configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeFn, err := openManager()
		if err != nil {
			return err
		}
		defer closeFn()

		resources, err := mgr.LoadResources()
		if err != nil {
			return err
		}

		// Round-trip through JSON so the YAML keys match the published
		// json_<field> names.
		encoded, err := json.Marshal(resources)
		if err != nil {
			return err
		}
		var view map[string]any
		if err := json.Unmarshal(encoded, &view); err != nil {
			return err
		}
		out, err := yaml.Marshal(view)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var bindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Publish corosync binding parameters and the stored resources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		iface, _ := cmd.Flags().GetString("iface")
		mcastport, _ := cmd.Flags().GetInt("mcastport")
		if iface == "" {
			iface = cfg.BindInterface
		}
		if mcastport == 0 {
			mcastport = cfg.McastPort
		}

		mgr, closeFn, err := openManager()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := mgr.BindResources(iface, mcastport); err != nil {
			return err
		}
		fmt.Println("✓ Resources bound")
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Serve Prometheus metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		if addr == "" {
			addr = ":9109"
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		fmt.Printf("Serving metrics on %s/metrics\n", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	addVIPCmd.Flags().String("nic", "", "Network interface to bind the VIP to")
	addVIPCmd.Flags().String("cidr", "", "Netmask for the VIP")
	addInitServiceCmd.Flags().Bool("clone", true, "Run the service on every node")
	addSystemdServiceCmd.Flags().Bool("clone", true, "Run the service on every node")
	bindCmd.Flags().String("iface", "", "Corosync bind interface")
	bindCmd.Flags().Int("mcastport", 0, "Corosync multicast port")
	metricsCmd.Flags().String("addr", "", "Listen address for the metrics endpoint")
}
