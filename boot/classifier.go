// Package boot decides, from on-disk markers and the supplied join addresses,
// how this node enters the cluster, and performs the one-time data directory
// initialization for fresh nodes.
package boot

import (
	"os"
	"path/filepath"
	"strings"
)

// clusterStateFile is written by the database at the data directory root once
// the node has been a running cluster member. It is read-only to this program.
const clusterStateFile = "grastate.dat"

// systemSchemaDir marks a data directory that has been initialized at least
// once. It is created by Initialize and never deleted by this program.
const systemSchemaDir = "mysql"

// Mode classifies how this node starts. It is computed once per process
// lifetime and immutable thereafter.
type Mode int

const (
	// StartNormally resumes a previously initialized node with no join input.
	StartNormally Mode = iota
	// BootstrapNew originates a brand-new cluster from this node.
	BootstrapNew
	// JoinExisting joins the cluster at the supplied addresses.
	JoinExisting
	// RecoverAndJoin recovers the last known cluster position, then joins.
	RecoverAndJoin
)

func (m Mode) String() string {
	switch m {
	case StartNormally:
		return "start-normally"
	case BootstrapNew:
		return "bootstrap-new"
	case JoinExisting:
		return "join-existing"
	case RecoverAndJoin:
		return "recover-and-join"
	}
	return "unknown"
}

// Provisions reports whether this mode goes through the initializer check and
// the setup pass. Joining nodes receive their data from the cluster's state
// transfer, not from local provisioning.
func (m Mode) Provisions() bool {
	return m == StartNormally || m == BootstrapNew
}

// HasClusterState reports whether the data directory holds prior cluster
// membership state.
func HasClusterState(datadir string) bool {
	info, err := os.Stat(filepath.Join(datadir, clusterStateFile))
	return err == nil && !info.IsDir()
}

// Initialized reports whether first-time initialization has already happened
// for this data directory.
func Initialized(datadir string) bool {
	info, err := os.Stat(filepath.Join(datadir, systemSchemaDir))
	return err == nil && info.IsDir()
}

// Classify picks the startup mode from the presence of prior cluster state and
// the join-address input.
func Classify(joinAddrs []string, clusterState bool) Mode {
	switch {
	case len(joinAddrs) > 0 && clusterState:
		return RecoverAndJoin
	case len(joinAddrs) > 0:
		return JoinExisting
	case clusterState:
		return StartNormally
	default:
		return BootstrapNew
	}
}

// ExtraArgs computes the server arguments a mode contributes. The recovered
// position, when non-empty, is appended verbatim; it comes straight from the
// recovery helper's output.
func ExtraArgs(mode Mode, joinAddrs []string, position string) []string {
	switch mode {
	case JoinExisting:
		return []string{clusterAddressArg(joinAddrs)}
	case RecoverAndJoin:
		args := []string{clusterAddressArg(joinAddrs)}
		if position != "" {
			args = append(args, position)
		}
		return args
	case BootstrapNew:
		return []string{"--wsrep-new-cluster"}
	}
	return nil
}

func clusterAddressArg(joinAddrs []string) string {
	return "--wsrep_cluster_address=gcomm://" + strings.Join(joinAddrs, ",")
}
