package utilities

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake ids from a single node. A node must be shared
// by every caller in the process, otherwise two nodes with the same node id can
// produce the same id within one millisecond.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for the given snowflake node (0..1023).
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &IDGenerator{node: node}, nil
}

// NewID returns the next id as a decimal string.
func (g *IDGenerator) NewID() string {
	return g.node.Generate().String()
}

var (
	defaultGenOnce sync.Once
	defaultGen     *IDGenerator
)

// NewSnowflakeID generates a snowflake ID string using a process-wide node whose id
// comes from SNOWFLAKE_NODE (default 1). If the node cannot be initialized it falls
// back to a KSUID string so a unique ID is still returned.
func NewSnowflakeID() string {
	defaultGenOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = n
			}
		}
		defaultGen, _ = NewIDGenerator(nodeID)
	})
	if defaultGen == nil {
		return NewKSUID()
	}
	return defaultGen.NewID()
}
