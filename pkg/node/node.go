// Package node implements the process-wide node lifecycle: a liveness
// token per named node, and a dead-port reaper that walks a service's
// dynamic config clearing out ports and connections left behind by a
// node whose owning process has exited.
package node

import (
	"errors"
	"os"

	"github.com/iox2go/iox2/internal/shmem"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrNodeNameAlreadyInUse is returned when a liveness token is already
// registered under the requested name.
var ErrNodeNameAlreadyInUse = errors.New("node: name already in use")

// monitors is the per-node liveness-token storage, process-wide and
// independent of any one service's dynamic config.
var monitors = shmem.NewObjects()

// LivenessToken records the OS process id that owns a node.
type LivenessToken struct {
	PID int32
}

func currentToken() LivenessToken {
	return LivenessToken{PID: int32(os.Getpid())}
}

// Node is a process-wide handle: construct one per owning process, pass
// its Name into every pkg/service Builder.Open/OpenOrCreate call, and
// Drop it on clean shutdown. Other nodes' dead-port scans treat a name
// with no registered (or no longer living) token as dead.
type Node struct {
	Name string
}

// New registers a fresh liveness token under name, failing with
// ErrNodeNameAlreadyInUse if another live node already holds it.
func New(name string) (*Node, error) {
	if err := monitors.Create(name, currentToken()); err != nil {
		return nil, ErrNodeNameAlreadyInUse
	}
	return &Node{Name: name}, nil
}

// Drop removes this node's liveness token. Once dropped, any service
// still listing this node in its dynamic config will be found dead on
// the next reaper scan.
func (n *Node) Drop() {
	monitors.Remove(n.Name)
}

// IsAlive reports whether name's liveness token exists and its owning
// process is still running. A name with no token at all (never
// registered, or already Drop()-ed) counts as dead, same as one whose
// process exited without calling Drop.
func IsAlive(name string) bool {
	v, ok := monitors.Peek(name)
	if !ok {
		return false
	}
	tok, ok := v.(LivenessToken)
	if !ok {
		return false
	}
	alive, err := process.PidExists(tok.PID)
	return err == nil && alive
}
