package models

import (
	"fmt"
	"sync/atomic"
	"time"
)

var localSeq atomic.Int64

// NewLocalID generates an ID for an entity created while the API is
// unreachable. Time-based with a process-wide counter so two offline
// creates in the same millisecond never collide. The "local-" prefix
// lets a future sync pass recognize entities that were never persisted
// remotely.
func NewLocalID() string {
	return fmt.Sprintf("local-%d-%04d", time.Now().UnixMilli(), localSeq.Add(1))
}
