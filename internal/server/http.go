package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
	"github.com/screenscout/screenscout/internal/registry"
)

// renameBodyLimit caps the rename request body.
const renameBodyLimit = 4096

type devicesResponse struct {
	Devices []*device.Device `json:"devices"`
}

type renameRequest struct {
	Name string `json:"name"`
}

// handleDevices serves the saved-device list.
//
//	GET /api/devices
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	devices, err := s.registry.List()
	if err != nil {
		logging.Error("Failed to list registry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, devicesResponse{Devices: devices})
}

// handleDevice serves one saved device by address.
//
//	GET    /api/devices/{addr}   fetch
//	PATCH  /api/devices/{addr}   rename (body: {"name": "..."}; empty clears)
//	DELETE /api/devices/{addr}   forget
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimPrefix(r.URL.Path, "/api/devices/")
	if addr == "" || strings.Contains(addr, "/") {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		d, err := s.registry.Get(addr)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)

	case http.MethodPatch:
		var req renameRequest
		body := http.MaxBytesReader(w, r.Body, renameBodyLimit)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid rename body")
			return
		}
		if err := s.registry.Rename(addr, req.Name); err != nil {
			writeRegistryError(w, err)
			return
		}
		d, err := s.registry.Get(addr)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		logging.Info("Device renamed",
			zap.String("addr", addr),
			zap.String("name", req.Name),
		)
		writeJSON(w, http.StatusOK, d)

	case http.MethodDelete:
		if err := s.registry.Forget(addr); err != nil {
			writeRegistryError(w, err)
			return
		}
		logging.Info("Device forgotten", zap.String("addr", addr))
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeRegistryError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	logging.Error("Registry operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
