package scan

import "time"

// EventType names one lifecycle or progress event the Control Surface emits.
type EventType string

const (
	EventProgress           EventType = "Progress"
	EventFilesEnumerated    EventType = "FilesEnumerated"
	EventBuildingHashesDone EventType = "BuildingHashesDone"
	EventThumbnailsRetrieved EventType = "ThumbnailsRetrieved"
	EventScanDone           EventType = "ScanDone"
	EventScanAborted        EventType = "ScanAborted"
	EventDatabaseCleaned    EventType = "DatabaseCleaned"
)

// Event is one item on the Control Surface's event stream.
type Event struct {
	Type      EventType
	Processed int
	Total     int
	Elapsed   time.Duration
	Remaining time.Duration
	Detail    string
}
