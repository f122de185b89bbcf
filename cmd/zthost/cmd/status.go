package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyStarInYourSky/zthost/cmd/zthost/daemon"
	"github.com/MyStarInYourSky/zthost/internal/agent"
	"github.com/MyStarInYourSky/zthost/internal/api"
	"github.com/MyStarInYourSky/zthost/models"
)

var (
	statusAddr string
	statusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and host status",
	Long: `Display the zthost daemon status.

Queries the running daemon's local status API. When no daemon is running,
falls back to inspecting the local agent directly (node ID and joined
networks), without contacting the control plane.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", daemon.DefaultListenAddr,
		"Daemon status API address")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false,
		"Print the status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := fetchDaemonStatus(statusAddr)
	if err == nil {
		return printDaemonStatus(status, statusJSON)
	}

	// No daemon: inspect the host directly.
	return printLocalStatus(statusJSON)
}

func fetchDaemonStatus(addr string) (*api.Status, error) {
	client := &http.Client{Timeout: 3 * time.Second}

	resp, err := client.Get("http://" + addr + "/status")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDaemonUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status API returned %d", models.ErrDaemonUnreachable, resp.StatusCode)
	}

	var status api.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDaemonUnreachable, err)
	}
	return &status, nil
}

func printDaemonStatus(status *api.Status, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	fmt.Printf("Daemon: running (version %s, up since %s)\n",
		status.Version, status.StartedAt.Format(time.RFC3339))
	fmt.Printf("Node ID: %s\n", status.NodeID)
	fmt.Printf("Interval: %s\n", time.Duration(status.Interval*float64(time.Second)))

	if status.LastRunError != "" {
		fmt.Printf("Last run: failed: %s\n", status.LastRunError)
	}
	if status.LastRun == nil {
		if status.LastRunError == "" {
			fmt.Println("Last run: none yet")
		}
		return nil
	}

	run := status.LastRun
	fmt.Printf("Last run: %s at %s\n", run.RunID, run.FinishedAt.Format(time.RFC3339))
	for _, network := range run.Networks {
		state := "ok"
		if network.Changed {
			state = "changed"
		}
		if network.Failed() {
			state = "failed: " + network.Error
		}
		fmt.Printf("  %s  %v  %s\n", network.NetworkID, network.Actions, state)
	}
	return nil
}

// localStatus is the fallback view when no daemon is running.
type localStatus struct {
	Daemon         string   `json:"daemon"`
	NodeID         string   `json:"node_id,omitempty"`
	JoinedNetworks []string `json:"joined_networks"`
}

func printLocalStatus(asJSON bool) error {
	zerotierAgent := agent.New(agent.Config{})
	if !zerotierAgent.Installed() {
		return models.ErrAgentNotInstalled
	}

	status := localStatus{Daemon: "not running"}
	if nodeID, err := zerotierAgent.NodeID(); err == nil {
		status.NodeID = nodeID
	}

	joined, err := zerotierAgent.JoinedNetworks()
	if err != nil {
		return err
	}
	sort.Strings(joined)
	status.JoinedNetworks = joined

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	fmt.Println("Daemon: not running (showing local agent state)")
	fmt.Printf("Node ID: %s\n", status.NodeID)
	if len(joined) == 0 {
		fmt.Println("Joined networks: none")
		return nil
	}
	fmt.Println("Joined networks:")
	for _, id := range joined {
		fmt.Printf("  %s\n", id)
	}
	return nil
}
