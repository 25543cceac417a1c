// Package version reports the library and wire versions.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const (
	// Version is the library version.
	Version = "1.0.0"

	// WireVersion identifies the envelope and frame encodings. Any change to
	// either encoding bumps WireVersion and Version together.
	WireVersion = 1
)

// GetVersion returns Version.
func GetVersion() string {
	return Version
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version     string `json:"version"`
	WireVersion int    `json:"wire_version"`
	GoVersion   string `json:"go_version"`
	Module      string `json:"module,omitempty"`
	Revision    string `json:"revision,omitempty"`
	Time        string `json:"time,omitempty"`
	Modified    bool   `json:"modified,omitempty"`
}

// GetBuildInfo reads the VCS stamp embedded by the Go toolchain.
// Fields the toolchain did not record are left empty.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:     Version,
		WireVersion: WireVersion,
		GoVersion:   runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.Module = bi.Main.Path
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.time":
			info.Time = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func (b BuildInfo) String() string {
	s := fmt.Sprintf("umicp %s (wire v%d, %s)", b.Version, b.WireVersion, b.GoVersion)
	if b.Revision != "" {
		rev := b.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if b.Modified {
			rev += "-dirty"
		}
		s += " commit " + rev
	}
	if b.Time != "" {
		s += " built " + b.Time
	}
	return s
}
