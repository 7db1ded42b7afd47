package node

import (
	"fmt"
	"os"
	"sort"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	"github.com/quillchat/quill/pkg/apiclient"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node identity and load",
	Long: `Show the node's name, session counters, and the per-node login
counts it reads from redis.

The login counts cover the whole cluster, not just this node, so the
output is enough to see where sessions are concentrated.

Examples:
  # Show node status
  quillctl node status

  # Show as JSON
  quillctl node status -o json`,
	RunE: runStatus,
}

// NodeStatus wraps node info for table rendering.
type NodeStatus struct {
	Info *apiclient.NodeInfo
}

// Headers implements TableRenderer.
func (ns NodeStatus) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (ns NodeStatus) Rows() [][]string {
	rows := [][]string{
		{"Name", ns.Info.Name},
		{"Active sessions", fmt.Sprintf("%d", ns.Info.ActiveSessions)},
		{"Online users", fmt.Sprintf("%d", ns.Info.OnlineUsers)},
	}

	// Stable ordering for the cluster login counts.
	nodes := make([]string, 0, len(ns.Info.LoginCounts))
	for name := range ns.Info.LoginCounts {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	for _, name := range nodes {
		rows = append(rows, []string{fmt.Sprintf("Logins on %s", name), fmt.Sprintf("%d", ns.Info.LoginCounts[name])})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	info, err := client.GetNode()
	if err != nil {
		return fmt.Errorf("failed to get node status: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, info, NodeStatus{Info: info})
}
