package ipc

import (
	"fmt"
	"os"
	"syscall"
)

// MappedLog is a raw memory-mapped log file: the P term partitions followed
// by the metadata region, as one contiguous mapping.
type MappedLog struct {
	file *os.File
	data []byte
}

// Bytes returns the full mapped region.
func (m *MappedLog) Bytes() []byte { return m.data }

// TermBytes returns the slice for term partition index (0..PartitionCount).
func (m *MappedLog) TermBytes(index int, termLength int32) []byte {
	start := int64(index) * int64(termLength)
	return m.data[start : start+int64(termLength)]
}

// MetadataBytes returns the slice backing the metadata region, starting
// immediately after the P term partitions.
func (m *MappedLog) MetadataBytes(termLength int32, metadataLength int32) []byte {
	start := int64(PartitionCount) * int64(termLength)
	return m.data[start : start+int64(metadataLength)]
}

// LogMapper maps and unmaps a raw log file. Production code backs it with
// syscall.Mmap directly; tests substitute InMemoryMapper so construction
// failures and cleaning behavior can be exercised without touching the
// filesystem.
type LogMapper interface {
	// Map creates (or opens) the log file at path, ensures it is exactly
	// length bytes, and maps it read/write, shared with any other process
	// that maps the same path.
	Map(path string, length int64) (*MappedLog, error)
	// Unmap releases a mapping created by Map.
	Unmap(m *MappedLog) error
}

// UnixMapper is the production LogMapper, backed directly by syscall.Mmap.
type UnixMapper struct{}

var _ LogMapper = UnixMapper{}

func (UnixMapper) Map(path string, length int64) (*MappedLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if stat.Size() != length {
		if err := file.Truncate(length); err != nil {
			file.Close()
			return nil, fmt.Errorf("truncate log file: %w", err)
		}
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(length), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmap log file: %w", err)
	}

	return &MappedLog{file: file, data: data}, nil
}

func (UnixMapper) Unmap(m *MappedLog) error {
	if m == nil {
		return nil
	}
	var firstErr error
	if m.data != nil {
		if err := syscall.Munmap(m.data); err != nil {
			firstErr = err
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.file = nil
	}
	return firstErr
}

// InMemoryMapper is a LogMapper that allocates a plain byte slice instead of
// touching the filesystem. It is used by this module's own unit tests and is
// suitable for embedders that want to exercise publication logic without a
// real mapped file (e.g. in a sandboxed test runner).
type InMemoryMapper struct {
	// FailMap, if set, is returned by Map unconditionally — used to exercise
	// the MapFailed construction path.
	FailMap error
}

var _ LogMapper = (*InMemoryMapper)(nil)

func (m *InMemoryMapper) Map(path string, length int64) (*MappedLog, error) {
	if m.FailMap != nil {
		return nil, m.FailMap
	}
	return &MappedLog{data: make([]byte, length)}, nil
}

func (m *InMemoryMapper) Unmap(ml *MappedLog) error {
	if ml != nil {
		ml.data = nil
	}
	return nil
}

// FileSystemProbe reports usable free space for the pre-construction
// NoSpace check.
type FileSystemProbe interface {
	UsableSpace(dir string) (int64, error)
}

// StatfsProbe is the production FileSystemProbe, backed by syscall.Statfs.
type StatfsProbe struct{}

var _ FileSystemProbe = StatfsProbe{}

func (StatfsProbe) UsableSpace(dir string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

// FixedSpaceProbe is a FileSystemProbe stub for tests: it reports a fixed
// usable-space value regardless of directory.
type FixedSpaceProbe struct {
	Bytes int64
}

var _ FileSystemProbe = FixedSpaceProbe{}

func (p FixedSpaceProbe) UsableSpace(string) (int64, error) {
	return p.Bytes, nil
}
