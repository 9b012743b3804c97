package device

import (
	"bufio"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// BootDisk detects the disk backing the root filesystem from
// /proc/self/mounts. An empty result means it could not be told, which
// happens with /dev/root or overlay roots; Candidates still filters on
// mountpoints in that case.
func BootDisk() (string, error) {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return "", nil
	}

	dev, err := parseRootDevice(string(data))
	if err != nil || !strings.HasPrefix(dev, "/dev/") || dev == "/dev/root" {
		return "", nil
	}
	return BaseDisk(dev), nil
}

// parseRootDevice parses the content of /proc/self/mounts and returns the
// device name that is mounted at "/".
func parseRootDevice(mounts string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(mounts))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[1] == "/" {
			return fields[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("root mount not found")
}
