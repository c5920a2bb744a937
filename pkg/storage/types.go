package storage

import (
	"fmt"
	"path"
	"time"
)

type DiskStorage struct {
	Path string
}

func NewDiskStorage(path string) *DiskStorage {
	return &DiskStorage{
		Path: path,
	}
}

// GetFileName returns the final path for name and a unique temp path next
// to it. Writers fill the temp file and rename it over the final one.
func (d *DiskStorage) GetFileName(name string) (string, string) {
	fileName := path.Join(d.Path, name)
	tmpFileName := fileName + ".tmp-" + fmt.Sprintf("%d", time.Now().UnixMilli())
	return fileName, tmpFileName
}
