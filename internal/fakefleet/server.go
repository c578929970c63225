// Package fakefleet is an in-memory device manager that speaks the same HTTP
// contract as the real server. It backs `fleetdash fake-server` and the
// end-to-end tests.
package fakefleet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bkonkle/fleetdash/internal/fleet"
)

// First ports handed out to added devices. Each new device takes the highest
// port in use plus one.
const (
	firstAppiumPort = 6001
	firstWDAPort    = 8100
	firstSystemPort = 8200
	firstMJPEGPort  = 9100
)

var errInvalidStatType = errors.New("invalid stat type")

type device struct {
	index    int
	config   fleet.DeviceConfig
	status   fleet.Status
	stats    fleet.Stats
	detailed fleet.DetailedStats
	logs     []string
	ticks    int
}

// Server holds the fake fleet state.
type Server struct {
	mu      sync.Mutex
	devices []*device
	// nextIndex is never reused, so an index names one device for its lifetime.
	nextIndex int
	logger  zerolog.Logger
	now     func() time.Time

	// OnShutdown is called after a shutdown request has stopped every device.
	OnShutdown func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClock overrides the clock used for log line timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates an empty fake fleet.
func New(opts ...Option) *Server {
	s := &Server{
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed registers devices as if they had been added, all stopped.
func (s *Server) Seed(devices ...fleet.AddRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range devices {
		s.addLocked(d.Name, d.UDID)
	}
}

// RecordStat bumps a counter the way the bot does. category may be empty.
func (s *Server) RecordStat(index int, statType, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deviceLocked(index)
	if !ok {
		return fmt.Errorf("device %d not found", index)
	}
	return d.bump(statType, category)
}

// simulatedOutcomes is the order in which Tick cycles a running device through
// request outcomes.
var simulatedOutcomes = []struct {
	statType string
	category string
	line     string
}{
	{"successful", "first_request", "✅ Success on first request"},
	{"successful", "second_request", "✅ Success on second request"},
	{"confirm_human", "first_request", "⚠ Needs human confirmation"},
	{"successful", "multiple_numbers", "✅ Success after multiple numbers"},
	{"failed", "", "❌ Error: request failed"},
}

// Tick advances every running device by one simulated request.
func (s *Server) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		if d.status != fleet.StatusRunning {
			continue
		}
		o := simulatedOutcomes[d.ticks%len(simulatedOutcomes)]
		d.ticks++
		_ = d.bump(o.statType, o.category)
		d.log(s.now(), o.line)
	}
}

// Simulate calls Tick every interval until ctx is done.
func (s *Server) Simulate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group("/api")
	{
		api.GET("/devices", s.listDevices)
		api.POST("/device/add", s.addDevice)
		api.POST("/logs/cleanup", s.cleanupLogs)
		api.POST("/shutdown", s.shutdown)

		dev := api.Group("/device/:index")
		{
			dev.POST("/start", s.startDevice)
			dev.POST("/stop", s.stopDevice)
			dev.POST("/delete", s.deleteDevice)
			dev.GET("/logs", s.deviceLogs)
			dev.GET("/stats", s.deviceStats)
			dev.GET("/stats/detailed", s.detailedStats)
			dev.POST("/stats/update", s.updateStats)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

type deviceJSON struct {
	Index      int          `json:"index"`
	Name       string       `json:"name"`
	UDID       string       `json:"udid"`
	AppiumPort int          `json:"appium_port"`
	Status     fleet.Status `json:"status"`
	Stats      fleet.Stats  `json:"stats"`
}

func (s *Server) listDevices(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]deviceJSON, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, deviceJSON{
			Index:      d.index,
			Name:       d.config.Name,
			UDID:       d.config.UDID,
			AppiumPort: d.config.AppiumPort,
			Status:     d.status,
			Stats:      d.stats,
		})
		// A starting device finishes booting by the next poll.
		if d.status == fleet.StatusStarting {
			d.status = fleet.StatusRunning
			d.log(s.now(), "Bot running")
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addDevice(c *gin.Context) {
	var req fleet.AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.UDID = strings.TrimSpace(req.UDID)
	if req.Name == "" || req.UDID == "" {
		fail(c, http.StatusBadRequest, "Name and UDID are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		if d.config.UDID == req.UDID {
			c.JSON(http.StatusOK, fleet.ActionResult{Success: false, Error: "Device with this UDID already exists"})
			return
		}
	}

	cfg := s.addLocked(req.Name, req.UDID)
	c.JSON(http.StatusOK, fleet.ActionResult{Success: true, Device: &cfg})
}

func (s *Server) addLocked(name, udid string) fleet.DeviceConfig {
	cfg := fleet.DeviceConfig{
		Name:         name,
		UDID:         udid,
		AppiumPort:   firstAppiumPort,
		WDALocalPort: firstWDAPort,
		SystemPort:   firstSystemPort,
		MJPEGPort:    firstMJPEGPort,
	}
	for _, d := range s.devices {
		cfg.AppiumPort = max(cfg.AppiumPort, d.config.AppiumPort+1)
		cfg.WDALocalPort = max(cfg.WDALocalPort, d.config.WDALocalPort+1)
		cfg.SystemPort = max(cfg.SystemPort, d.config.SystemPort+1)
		cfg.MJPEGPort = max(cfg.MJPEGPort, d.config.MJPEGPort+1)
	}
	s.devices = append(s.devices, &device{index: s.nextIndex, config: cfg, status: fleet.StatusStopped})
	s.nextIndex++
	return cfg
}

func (s *Server) startDevice(c *gin.Context) {
	s.withDevice(c, func(d *device) {
		if d.status.IsActive() {
			c.JSON(http.StatusOK, fleet.ActionResult{Success: false, Error: "Device already running"})
			return
		}
		d.status = fleet.StatusStarting
		d.log(s.now(), fmt.Sprintf("Starting Appium on port %d", d.config.AppiumPort))
		c.JSON(http.StatusOK, fleet.ActionResult{Success: true})
	})
}

func (s *Server) stopDevice(c *gin.Context) {
	s.withDevice(c, func(d *device) {
		d.status = fleet.StatusStopped
		d.log(s.now(), "Stopped")
		c.JSON(http.StatusOK, fleet.ActionResult{Success: true})
	})
}

func (s *Server) deleteDevice(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.positionLocked(index)
	if pos < 0 {
		fail(c, http.StatusNotFound, "Device not found")
		return
	}
	s.devices = append(s.devices[:pos], s.devices[pos+1:]...)
	c.JSON(http.StatusOK, fleet.ActionResult{Success: true})
}

func (s *Server) deviceLogs(c *gin.Context) {
	s.withDevice(c, func(d *device) {
		if d.status == fleet.StatusRunning {
			d.log(s.now(), "Waiting for verification code...")
		}
		if len(d.logs) == 0 {
			c.JSON(http.StatusOK, gin.H{"logs": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": strings.Join(d.logs, "\n")})
	})
}

func (s *Server) deviceStats(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Unknown devices report zeros rather than 404.
	var stats fleet.Stats
	if d, ok := s.deviceLocked(index); ok {
		stats = d.stats
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) detailedStats(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var detailed fleet.DetailedStats
	if d, ok := s.deviceLocked(index); ok {
		detailed = d.detailed
	}
	c.JSON(http.StatusOK, detailed)
}

type statUpdate struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

func (s *Server) updateStats(c *gin.Context) {
	var req statUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.withDevice(c, func(d *device) {
		if err := d.bump(req.Type, req.Category); err != nil {
			fail(c, http.StatusBadRequest, "Invalid stat type")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": d.stats})
	})
}

func (s *Server) cleanupLogs(c *gin.Context) {
	var req fleet.CleanupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.MaxSizeMB <= 0 {
		req.MaxSizeMB = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Logs live in memory; trim each tail to a line budget derived from the size.
	keep := req.MaxSizeMB * 10
	for _, d := range s.devices {
		if len(d.logs) > keep {
			d.logs = d.logs[len(d.logs)-keep:]
		}
	}
	c.JSON(http.StatusOK, fleet.ActionResult{Success: true})
}

func (s *Server) shutdown(c *gin.Context) {
	s.mu.Lock()
	for _, d := range s.devices {
		if d.status != fleet.StatusStopped {
			d.status = fleet.StatusStopped
			d.log(s.now(), "Stopped by shutdown")
		}
	}
	onShutdown := s.OnShutdown
	s.mu.Unlock()

	c.JSON(http.StatusOK, fleet.ActionResult{Success: true})
	if onShutdown != nil {
		onShutdown()
	}
}

// withDevice resolves :index and runs fn under the lock, answering 404 for
// unknown devices.
func (s *Server) withDevice(c *gin.Context, fn func(d *device)) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deviceLocked(index)
	if !ok {
		fail(c, http.StatusNotFound, "Device not found")
		return
	}
	fn(d)
}

func (s *Server) deviceLocked(index int) (*device, bool) {
	pos := s.positionLocked(index)
	if pos < 0 {
		return nil, false
	}
	return s.devices[pos], true
}

// positionLocked returns the slice position of the device with index, or -1.
func (s *Server) positionLocked(index int) int {
	for i, d := range s.devices {
		if d.index == index {
			return i
		}
	}
	return -1
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid device index")
		return 0, false
	}
	return index, true
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, fleet.ActionResult{Success: false, Error: msg})
}

func (d *device) log(at time.Time, line string) {
	d.logs = append(d.logs, fmt.Sprintf("[%s] %s", at.Format("15:04:05"), line))
}

func (d *device) bump(statType, category string) error {
	var group *fleet.Breakdown
	switch statType {
	case "successful":
		d.stats.Successful++
		group = &d.detailed.Successful
	case "confirm_human":
		d.stats.ConfirmHuman++
		group = &d.detailed.ConfirmHuman
	case "failed":
		d.stats.Failed++
	default:
		return errInvalidStatType
	}

	if group == nil || category == "" {
		return nil
	}
	switch category {
	case "first_request":
		group.FirstRequest++
	case "second_request":
		group.SecondRequest++
	case "multiple_numbers":
		group.MultipleNumbers++
	}
	return nil
}
