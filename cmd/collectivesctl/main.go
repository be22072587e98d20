// cmd/collectivesctl is the CLI entry-point built with Cobra.
//
// Usage:
//
//	collectivesctl store set mykey "hello world"     --server http://localhost:8080
//	collectivesctl store get mykey                    --server http://localhost:8080
//	collectivesctl cluster nodes                       --server http://localhost:8080
//	collectivesctl barrier my-group --rank 0 --world-size 3 --server http://localhost:8080
//	collectivesctl all-sum my-group 4 --rank 0 --world-size 3 --server http://localhost:8080
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"rendezvous-collectives/collectives"
	"rendezvous-collectives/internal/rendezvousclient"
)

var (
	serverAddr string
	timeout    time.Duration
	rank       int
	worldSize  int
)

func main() {
	root := &cobra.Command{
		Use:   "collectivesctl",
		Short: "CLI client for the rendezvous collectives store",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "rendezvous node address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"operation timeout")
	root.PersistentFlags().IntVar(&rank, "rank", 0, "this process's rank")
	root.PersistentFlags().IntVar(&worldSize, "world-size", 1, "total number of ranks")

	root.AddCommand(
		storeCmd(),
		clusterCmd(),
		barrierCmd(),
		broadcastCmd(),
		gatherCmd(),
		scatterCmd(),
		allGatherCmd(),
		allSumCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *rendezvousclient.Client {
	return rendezvousclient.New(serverAddr, timeout)
}

func newCollectives() (*collectives.Collectives, error) {
	return collectives.New(newClient(), rank, worldSize)
}

// ─── store ────────────────────────────────────────────────────────────────────

func storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Raw key-value operations against a single rendezvous node",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().Set(args[0], []byte(args[1]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := newClient().Get(args[0])
			if err != nil {
				return err
			}
			fmt.Println(string(val))
			return nil
		},
	})

	return cmd
}

// ─── cluster ──────────────────────────────────────────────────────────────────

func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster management commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "nodes",
		Short: "List all cluster nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().GetRaw("/cluster/nodes")
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join <nodeID> <address>",
		Short: "Join a node to the cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().JoinCluster(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "leave <nodeID>",
		Short: "Remove a node from the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().LeaveCluster(args[0])
		},
	})

	return cmd
}

// ─── collective primitives ─────────────────────────────────────────────────────

func barrierCmd() *cobra.Command {
	var blocking bool
	cmd := &cobra.Command{
		Use:   "barrier <prefix>",
		Short: "Block until every rank reaches the barrier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			return c.Barrier(args[0], timeout, blocking)
		},
	}
	cmd.Flags().BoolVar(&blocking, "blocking", true, "wait for the full group to arrive")
	return cmd
}

func broadcastCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "broadcast", Short: "Broadcast a value from rank 0 to the group"}

	cmd.AddCommand(&cobra.Command{
		Use:   "send <prefix> <data>",
		Short: "Send the broadcast payload (call on the sending rank)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			return c.BroadcastSend(args[0], []byte(args[1]), timeout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recv <prefix>",
		Short: "Receive the broadcast payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			data, err := c.BroadcastRecv(args[0], timeout)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	return cmd
}

func gatherCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "gather", Short: "Gather each rank's value to one receiver"}

	cmd.AddCommand(&cobra.Command{
		Use:   "send <prefix> <data>",
		Short: "Contribute this rank's value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			return c.GatherSend(args[0], []byte(args[1]), timeout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recv <prefix> <own-data>",
		Short: "Assemble every rank's value in rank order (call on the receiving rank)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			values, err := c.GatherRecv(args[0], []byte(args[1]), timeout)
			if err != nil {
				return err
			}
			return printJSONStrings(values)
		},
	})

	return cmd
}

func scatterCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "scatter", Short: "Split world-size values, one per rank"}

	cmd.AddCommand(&cobra.Command{
		Use:   "send <prefix> <data-rank-0> [data-rank-1 ...]",
		Short: "Distribute one value per rank (call on the sending rank)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			data := make([][]byte, len(args)-1)
			for i, v := range args[1:] {
				data[i] = []byte(v)
			}
			local, err := c.ScatterSend(args[0], data, timeout)
			if err != nil {
				return err
			}
			fmt.Println(string(local))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recv <prefix>",
		Short: "Receive this rank's slice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			data, err := c.ScatterRecv(args[0], timeout)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	return cmd
}

func allGatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all-gather <prefix> <data>",
		Short: "Every rank contributes a value and receives everyone's",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCollectives()
			if err != nil {
				return err
			}
			values, err := c.AllGather(args[0], []byte(args[1]), timeout)
			if err != nil {
				return err
			}
			return printJSONStrings(values)
		},
	}
}

func allSumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all-sum <prefix> <value>",
		Short: "Every rank contributes an int64 and receives the group total",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			c, err := newCollectives()
			if err != nil {
				return err
			}
			total, err := c.AllSum(args[0], value, timeout)
			if err != nil {
				return err
			}
			fmt.Println(total)
			return nil
		},
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func printJSONStrings(values [][]byte) error {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = string(v)
	}
	data, err := json.MarshalIndent(strs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
