package shmem

import (
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// liveSegments counts the open handles this process holds per identifier.
// It only serves observability; the OS is the authority on what exists.
var liveSegments = cmap.New[int]()

func registerSegment(id string) {
	liveSegments.Upsert(id, 1, func(exists bool, cur, fresh int) int {
		if exists {
			return cur + 1
		}
		return fresh
	})
}

func unregisterSegment(id string) {
	n := liveSegments.Upsert(id, 0, func(exists bool, cur, _ int) int {
		return cur - 1
	})
	if n <= 0 {
		liveSegments.Remove(id)
	}
}

// ActiveSegments returns the identifiers of all segments currently mapped
// by this process.
func ActiveSegments() []string {
	return liveSegments.Keys()
}

// DebugSegment prints the in-process handle count for the identifier.
func DebugSegment(id string) {
	n, ok := liveSegments.Get(id)
	if !ok {
		fmt.Printf("id:%s not mapped in this process\n", id)
		return
	}
	fmt.Printf("id:%s handles:%d\n", id, n)
}
