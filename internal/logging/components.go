package logging

// Component constants for structured logging
const (
	ComponentStartup     = "startup"
	ComponentDatabase    = "database"
	ComponentSync        = "sync"
	ComponentFlashSale   = "flash-sale"
	ComponentStatusSweep = "status-sweep"
	ComponentSSE         = "sse"
	ComponentAPIDevice   = "api-device"
	ComponentAPISync     = "api-sync"
	ComponentAPIMedia    = "api-media"
	ComponentStorage     = "storage"
	ComponentPoller      = "poller"
)
