// Package fleet provides the HTTP client for the device manager API.
//
// Every method performs exactly one request and decodes the JSON body. The
// client never retries and never caches; the callers' polling schedule is
// the only retry mechanism.
package fleet

// Status is the server-reported state of a device.
type Status string

const (
	// StatusStarting means the device's processes are coming up.
	StatusStarting Status = "starting"
	// StatusRunning means the device is fully running.
	StatusRunning Status = "running"
	// StatusStopped means nothing is running for the device.
	StatusStopped Status = "stopped"
)

// IsActive reports whether the device may still be doing work.
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusStarting
}

// Device is one entry of the device list snapshot.
type Device struct {
	// Index is the server-assigned identity used by every action call.
	Index      int    `json:"index"`
	Name       string `json:"name"`
	UDID       string `json:"udid"`
	AppiumPort int    `json:"appium_port"`
	Status     Status `json:"status"`
	Stats      *Stats `json:"stats,omitempty"`
}

// Stats holds the summary counters shown on a device card.
type Stats struct {
	Successful   int `json:"successful"`
	ConfirmHuman int `json:"confirm_human"`
	Failed       int `json:"failed"`
}

// Breakdown splits a counter group by request category.
type Breakdown struct {
	FirstRequest    int `json:"first_request"`
	SecondRequest   int `json:"second_request"`
	MultipleNumbers int `json:"multiple_numbers"`
}

// Total returns the sum of all categories.
func (b Breakdown) Total() int {
	return b.FirstRequest + b.SecondRequest + b.MultipleNumbers
}

// DetailedStats is the snapshot returned by the detailed stats endpoint.
type DetailedStats struct {
	Successful   Breakdown `json:"successful"`
	ConfirmHuman Breakdown `json:"confirm_human"`
}

// LogSnapshot is a full log tail. A nil Logs means the server had nothing.
type LogSnapshot struct {
	Logs *string `json:"logs"`
}

// DeviceConfig is the provisioning record returned when a device is added.
type DeviceConfig struct {
	Name         string `json:"name"`
	UDID         string `json:"udid"`
	AppiumPort   int    `json:"appium_port"`
	WDALocalPort int    `json:"wda_local_port"`
	SystemPort   int    `json:"system_port"`
	MJPEGPort    int    `json:"mjpeg_port"`
}

// ActionResult is the in-band outcome of a mutating call.
// A false Success is business data, not a transport failure.
type ActionResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Device  *DeviceConfig `json:"device,omitempty"`
}

// AddRequest is the body of the add-device call.
type AddRequest struct {
	Name string `json:"name"`
	UDID string `json:"udid"`
}

// CleanupRequest is the body of the log cleanup call.
type CleanupRequest struct {
	MaxSizeMB int `json:"max_size_mb"`
}
