package runtime

import (
	"github.com/Brownie44l1/babble-runtime/internal/executor"
	"github.com/Brownie44l1/babble-runtime/internal/zone"
)

// zoneContext holds everything the runtime owns for one zone: its
// (possibly shared) inference session, input tensor, the two
// double-buffered output tensors, committed/pending timestamps, the swap
// bit selecting which output half is consumer-readable, and the group of
// zones it was last submitted alongside.
type zoneContext struct {
	session    executor.Session // nil when no model is loaded for this zone
	inputSize  [2]uint32        // width, height
	input      executor.Tensor
	output     [2]executor.Tensor
	inputName  string
	outputName string
	timestamp  [2]int64
	swap       bool // false selects output[0]/timestamp[0] as committed
	group      zone.Zones
}

func (c *zoneContext) loaded() bool {
	return c.session != nil
}

// committedIdx is the index of the consumer-readable output half.
func (c *zoneContext) committedIdx() int {
	return boolIdx(c.swap)
}

// pendingIdx is the index the next inference writes into.
func (c *zoneContext) pendingIdx() int {
	return boolIdx(!c.swap)
}

func boolIdx(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *zoneContext) reset() {
	*c = zoneContext{timestamp: [2]int64{-1, -1}}
}
