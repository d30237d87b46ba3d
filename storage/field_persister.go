package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

const (
	columnMagic = uint32(0x41435443) // "ACTC"

	kindInt   = byte(1)
	kindLong  = byte(2)
	kindFloat = byte(3)
)

// filePersister stores one column file per field under the fields
// directory. Snapshots replace the whole file atomically; fields are
// small dense arrays, so positional patching buys nothing here.
type filePersister struct {
	dir string
}

func (p *filePersister) SaveInts(field string, values []int32) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return p.save(field, kindInt, buf)
}

func (p *filePersister) SaveLongs(field string, values []int64) error {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return p.save(field, kindLong, buf)
}

func (p *filePersister) SaveFloats(field string, values []float32) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return p.save(field, kindFloat, buf)
}

func (p *filePersister) LoadInts(field string) ([]int32, error) {
	buf, err := p.load(field, kindInt)
	if buf == nil || err != nil {
		return nil, err
	}
	values := make([]int32, len(buf)/4)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values, nil
}

func (p *filePersister) LoadLongs(field string) ([]int64, error) {
	buf, err := p.load(field, kindLong)
	if buf == nil || err != nil {
		return nil, err
	}
	values := make([]int64, len(buf)/8)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}

func (p *filePersister) LoadFloats(field string) ([]float32, error) {
	buf, err := p.load(field, kindFloat)
	if buf == nil || err != nil {
		return nil, err
	}
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values, nil
}

func (p *filePersister) save(field string, kind byte, payload []byte) error {
	data := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(data[0:], columnMagic)
	data[4] = kind
	copy(data[8:], payload)
	return writeFileAtomic(filepath.Join(p.dir, fieldFileName(field)), data)
}

func (p *filePersister) load(field string, kind byte) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, fieldFileName(field)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read column %s: %w", field, err)
	}
	if len(data) < 8 || binary.LittleEndian.Uint32(data[0:]) != columnMagic {
		return nil, fmt.Errorf("storage: column %s corrupted", field)
	}
	if data[4] != kind {
		return nil, fmt.Errorf("storage: column %s has kind %d, want %d", field, data[4], kind)
	}
	return data[8:], nil
}
