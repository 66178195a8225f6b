package cache

import "time"

// Entry is one cached translation.
type Entry struct {
	Original     string
	Translated   string
	SourceLang   string
	TargetLang   string
	APIUsed      string
	CreatedAt    time.Time
	HitCount     int
	LastAccessed time.Time
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	MemoryEntries     int     `json:"memory_entries"`
	MemoryCapacity    int     `json:"memory_capacity"`
	MemoryUtilization float64 `json:"memory_utilization"`
	MemoryHits        int64   `json:"memory_hits"`
	MemoryMisses      int64   `json:"memory_misses"`
	MemoryHitRate     float64 `json:"memory_hit_rate"`
	DiskHits          int64   `json:"disk_hits"`
	DiskMisses        int64   `json:"disk_misses"`
	DiskHitRate       float64 `json:"disk_hit_rate"`
}
