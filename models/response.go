package models

// HealthResponse is the response for GET /_ah/status.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy", "degraded" or "browser_lost"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the shared browser session.
type PoolStats struct {
	// MaxConcurrent is the admission limit; 0 means unbounded.
	MaxConcurrent int  `json:"max_concurrent"`
	ActivePages   int  `json:"active_pages"`
	BrowserPID    int  `json:"browser_pid"`
	BrowserAlive  bool `json:"browser_alive"`
}

// ErrorResponse is the JSON body for rejections made by middleware.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
