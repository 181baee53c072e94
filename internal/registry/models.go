package registry

import (
	"github.com/screenscout/screenscout/internal/device"
)

// fileVersion gates the document format. Anything newer than what this
// build understands is refused rather than silently rewritten.
const fileVersion = 1

// File is the entire on-disk document.
type File struct {
	Version int                       `yaml:"version"`
	Devices map[string]*device.Device `yaml:"devices,omitempty"` // keyed by network address
}

// NewFile returns an empty document at the current version.
func NewFile() *File {
	return &File{
		Version: fileVersion,
		Devices: make(map[string]*device.Device),
	}
}
