package partition

import (
	"github.com/cockroachdb/errors"
)

// Adjustment describes the edit made to the last partition.
type Adjustment struct {
	Device  string
	Start   uint64
	OldSize uint64
	NewSize uint64
	// Shrunk is set when the destination cannot hold the original partition.
	Shrunk bool
}

// AdjustLastPartition resizes the last partition of dump so it ends exactly at
// destSectors. Only that partition's size= value changes.
func AdjustLastPartition(dump string, destSectors uint64) (string, Adjustment, error) {
	t, err := Parse(dump)
	if err != nil {
		return "", Adjustment{}, err
	}

	last, _ := t.Last()
	if destSectors <= last.Start {
		return "", Adjustment{}, errors.Newf(
			"destination has %d sectors but partition %s starts at sector %d",
			destSectors, last.Device, last.Start)
	}

	adj := Adjustment{
		Device:  last.Device,
		Start:   last.Start,
		OldSize: last.Size,
		NewSize: destSectors - last.Start,
	}
	adj.Shrunk = adj.NewSize < adj.OldSize

	for i := range t.Entries {
		if t.Entries[i].Line == last.Line {
			t.setSize(i, adj.NewSize)
			break
		}
	}

	return t.String(), adj, nil
}
