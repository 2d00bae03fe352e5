package api

import (
	"encoding/json"
	"net/http"
)

type healthInfo struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
}

// Health returns a liveness handler for the service.
func Health(service, instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthInfo{
			Status:     "pass",
			Service:    service,
			InstanceID: instanceID,
		})
	}
}
