package usecase

import (
	"context"
	"errors"
	"sort"
)

const (
	heatmapBucketSeconds = 10
	dropOffThreshold     = 40.0
)

// HeatmapReport groups heartbeat events into 10-second buckets and flags a
// sharp (>40%) decrease between consecutive buckets, which usually marks the
// point where viewers abandon a video.
type HeatmapReport struct {
	ResourceID      string      `json:"module_id"`
	Buckets         map[int]int `json:"heatmap"`
	DropOffDetected bool        `json:"drop_off_detected"`
}

type Heatmap struct {
	Events WatchEventStore
}

func (h *Heatmap) Generate(ctx context.Context, resourceID string) (HeatmapReport, error) {
	if h == nil || h.Events == nil {
		return HeatmapReport{}, errors.New("watch event store is required")
	}
	events, err := h.Events.ListHeartbeats(ctx, resourceID)
	if err != nil {
		return HeatmapReport{}, err
	}
	buckets := make(map[int]int)
	for _, event := range events {
		bucket := int(event.Position) / heatmapBucketSeconds * heatmapBucketSeconds
		buckets[bucket]++
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	dropOff := false
	for i := 1; i < len(keys); i++ {
		prev := buckets[keys[i-1]]
		curr := buckets[keys[i]]
		if prev > 0 {
			decrease := float64(prev-curr) / float64(prev) * 100
			if decrease > dropOffThreshold {
				dropOff = true
				break
			}
		}
	}
	return HeatmapReport{ResourceID: resourceID, Buckets: buckets, DropOffDetected: dropOff}, nil
}
