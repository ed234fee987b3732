package instance

import "os"

// GetID identifies this worker replica for lock holders and log fields.
// WORKER_ID wins, then the pod/host name, then a static fallback.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
