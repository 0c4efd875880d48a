package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/teachable/internal/models"
)

// sqliteSidecars are the files SQLite keeps next to a WAL-mode database.
var sqliteSidecars = []string{"", "-wal", "-shm"}

// MeasureDisk reports the on-disk footprint of the sample database, including
// its WAL and shared-memory files, and of the head files in headsDir. Empty or
// missing paths count as 0. Only *.json files directly in headsDir are heads;
// temp files left by interrupted saves are not counted.
func MeasureDisk(dbPath, headsDir string) (models.DiskUsage, error) {
	var usage models.DiskUsage
	if dbPath != "" {
		for _, suffix := range sqliteSidecars {
			n, err := fileSize(dbPath + suffix)
			if err != nil {
				return usage, err
			}
			usage.DatabaseBytes += n
		}
	}
	if headsDir != "" {
		n, err := headsSize(headsDir)
		if err != nil {
			return usage, err
		}
		usage.HeadsBytes = n
	}
	usage.TotalBytes = usage.DatabaseBytes + usage.HeadsBytes
	return usage, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if info.IsDir() {
		return 0, nil
	}
	return info.Size(), nil
}

func headsSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		n, err := fileSize(filepath.Join(dir, e.Name()))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
