package storage

// DiskUsage represents disk usage statistics for a path.
type DiskUsage struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

// PreflightAlert is returned when the catalog directory is low on space
// before a snapshot save.
type PreflightAlert struct {
	Path        string  `json:"path"`
	FreeGB      int64   `json:"freeGb"`
	TotalGB     int64   `json:"totalGb"`
	UsedPercent float64 `json:"usedPercent"`
	ThresholdGB int64   `json:"thresholdGb"`
}

// Preflight checks free space on the catalog directory before a snapshot
// write. A nil return means space is fine (or usage could not be determined,
// which is not treated as fatal — save() still proceeds and surfaces any
// real I/O failure on its own).
type Preflight struct {
	ThresholdGB int64
}

// NewPreflight creates a Preflight with the given minimum free-space threshold.
func NewPreflight(thresholdGB int64) *Preflight {
	return &Preflight{ThresholdGB: thresholdGB}
}

// Check returns an alert if free space on path is below the threshold.
func (p *Preflight) Check(path string) *PreflightAlert {
	usage, err := GetDiskUsage(path)
	if err != nil {
		return nil
	}

	freeGB := int64(usage.Free / (1024 * 1024 * 1024))
	totalGB := int64(usage.Total / (1024 * 1024 * 1024))

	if freeGB < p.ThresholdGB {
		return &PreflightAlert{
			Path:        path,
			FreeGB:      freeGB,
			TotalGB:     totalGB,
			UsedPercent: usage.UsedPercent,
			ThresholdGB: p.ThresholdGB,
		}
	}

	return nil
}

// BytesToGB converts bytes to gigabytes.
func BytesToGB(bytes uint64) float64 {
	return float64(bytes) / (1024 * 1024 * 1024)
}
