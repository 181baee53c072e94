package discovery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
)

// PairingPayload is the schema of a pairing code: the JSON a device (or
// its first-party app) renders as a QR code so a scan can skip discovery
// entirely. The schema is versioned and forward-compatible; unknown
// fields are ignored.
type PairingPayload struct {
	Version      int    `json:"version"`
	Address      string `json:"address"`
	Port         int    `json:"port"`
	Name         string `json:"name"`
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Brand        string `json:"brand,omitempty"`
}

// ParsePairingPayload decodes and validates a pairing code. Every failure
// is a typed validation error naming the offending field; a missing
// required field never decays to a silent default.
func ParsePairingPayload(data []byte) (*PairingPayload, error) {
	var p PairingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, NewValidationError(fmt.Sprintf("pairing code is not valid JSON: %v", err))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the required fields.
func (p *PairingPayload) Validate() error {
	if p.Version < 1 {
		return NewValidationError("pairing code version is missing or unsupported")
	}
	if p.Address == "" {
		return NewValidationError("pairing code is missing the device address")
	}
	if p.Port < 1 || p.Port > 65535 {
		return NewValidationError(fmt.Sprintf("pairing code port %d is out of range", p.Port))
	}
	if p.Name == "" {
		return NewValidationError("pairing code is missing the device name")
	}
	return nil
}

// Device converts the payload into a device record.
func (p *PairingPayload) Device() *device.Device {
	d := &device.Device{
		Addr:         p.Address,
		Name:         p.Name,
		Method:       device.MethodCode,
		Manufacturer: p.Manufacturer,
		Model:        p.Model,
		Port:         p.Port,
	}
	if p.Brand != "" {
		d.Brand = device.ParseBrand(p.Brand)
	}
	return d
}

// PairCode is the single-shot pairing-code reader. Its session emits
// exactly one event: the decoded device, or the terminal validation
// error.
type PairCode struct {
	sessions sessions
	payload  []byte
}

// NewPairCode returns a reader for one captured payload.
func NewPairCode(payload []byte) *PairCode {
	return &PairCode{payload: payload}
}

// Start launches the single-shot session.
func (c *PairCode) Start(ctx context.Context) error {
	sess := c.sessions.begin(ctx, "paircode")

	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()

		p, err := ParsePairingPayload(c.payload)
		if err != nil {
			sess.emitErr(err)
			return
		}

		d := p.Device()
		if sess.emitDevice(d) {
			logging.LogDeviceFound(sess.id, d.Addr, d.Name, string(d.Method))
		}
	}()
	sess.closeWhenDone()
	return nil
}

// Events implements Discoverer.
func (c *PairCode) Events() <-chan Event {
	return c.sessions.events()
}

// Stop implements Discoverer.
func (c *PairCode) Stop() {
	c.sessions.stop()
}
