package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/cpuinfo/types"
)

// ErrNotFound is returned when no snapshot is stored for a host.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one parsed listing collected from a host.
type Snapshot struct {
	// ID is a UUID assigned when the snapshot is created
	ID string `json:"id"`

	// Host names the machine the listing describes
	Host string `json:"host"`

	// Origin is where the listing was read from, such as "/proc/cpuinfo"
	Origin string `json:"origin,omitempty"`

	// CollectedAt is when the listing was read
	CollectedAt time.Time `json:"collected_at"`

	// CPUInfo is the parsed listing
	CPUInfo *types.CPUInfo `json:"cpuinfo"`
}

// New creates a snapshot with a fresh ID, collected now.
func New(host, origin string, info *types.CPUInfo) *Snapshot {
	return &Snapshot{
		ID:          uuid.NewString(),
		Host:        host,
		Origin:      origin,
		CollectedAt: time.Now().UTC(),
		CPUInfo:     info,
	}
}

// Validate checks that the snapshot can be stored.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is nil")
	}
	if s.Host == "" {
		return errors.New("host is required")
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		return fmt.Errorf("invalid snapshot id %q: %w", s.ID, err)
	}
	if s.CPUInfo == nil {
		return errors.New("cpuinfo is required")
	}
	return nil
}

// Update announces a newly saved snapshot on the updates channel.
type Update struct {
	ID          string    `json:"id"`
	Host        string    `json:"host"`
	CollectedAt time.Time `json:"collected_at"`
	Processors  int       `json:"processors"`
}
