package storage

import (
	"compress/gzip"
	"errors"
	"io"
	"iter"
	"log"
	"os"

	"github.com/bytedance/sonic"

	"github.com/stenmark/stone-finder/pkg/index"
	"github.com/stenmark/stone-finder/pkg/types"
)

const stonesFile = "stones.jz"

const loadBatchSize = 1000

// SaveItems writes the catalog as a gzipped stream of one JSON stone per
// line. The stream goes to a temp file first and replaces the snapshot
// atomically, so a crashed save never leaves a torn snapshot behind.
func (d *DiskStorage) SaveItems(items iter.Seq[types.Item]) error {
	fileName, tmpFileName := d.GetFileName(stonesFile)

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}
	zipWriter := gzip.NewWriter(file)

	count := 0
	for item := range items {
		if _, err = item.Write(zipWriter); err != nil {
			break
		}
		count++
	}
	if cerr := zipWriter.Close(); err == nil {
		err = cerr
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	log.Printf("Saved %d stones to %s", count, fileName)
	return os.Rename(tmpFileName, fileName)
}

// LoadItems replays the snapshot into the handlers in batches. A missing
// snapshot is not an error, the catalog just starts empty and warms up
// from the feed.
func (d *DiskStorage) LoadItems(handlers ...types.ItemHandler) error {
	fileName, _ := d.GetFileName(stonesFile)
	file, err := os.Open(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("No stone snapshot at %s, starting empty", fileName)
			return nil
		}
		return err
	}
	defer file.Close()

	zipReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer zipReader.Close()

	dec := sonic.ConfigDefault.NewDecoder(zipReader)
	batch := make([]types.Item, 0, loadBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		for _, h := range handlers {
			if err := h.HandleItems(batch); err != nil {
				return err
			}
		}
		batch = batch[:0]
		return nil
	}

	count := 0
	for {
		stone := &index.Stone{}
		if err := dec.Decode(stone); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if stone.Deleted {
			continue
		}
		batch = append(batch, stone)
		count++
		if len(batch) == loadBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	log.Printf("Loaded %d stones from %s", count, fileName)
	return nil
}

func (d *DiskStorage) SaveJson(data any, name string) error {
	fileName, tmpFileName := d.GetFileName(name)

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}
	err = sonic.ConfigDefault.NewEncoder(file).Encode(data)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	return os.Rename(tmpFileName, fileName)
}

func (d *DiskStorage) LoadJson(data any, name string) error {
	fileName, _ := d.GetFileName(name)
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	err = sonic.ConfigDefault.NewDecoder(file).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (d *DiskStorage) SaveGzippedJson(data any, name string) error {
	fileName, tmpFileName := d.GetFileName(name)

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}
	zipWriter := gzip.NewWriter(file)
	err = sonic.ConfigDefault.NewEncoder(zipWriter).Encode(data)
	if cerr := zipWriter.Close(); err == nil {
		err = cerr
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	return os.Rename(tmpFileName, fileName)
}

func (d *DiskStorage) LoadGzippedJson(data any, name string) error {
	fileName, _ := d.GetFileName(name)
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	zipReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer zipReader.Close()

	err = sonic.ConfigDefault.NewDecoder(zipReader).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
