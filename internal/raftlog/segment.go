package raftlog

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Segment file layout:
//
//	Header :  | entry_start(u64) | entry_end(u64) | body_end_offset(u64) |
//	Body   :  | record i | record i+1 | ... |
//
// Record layout:
//
//	| entry_id(u64) | payload_length(i32) | payload bytes | record_length(i32) |
//
// The trailing record_length word is the full framed size of the record,
// which lets TruncateSuffix walk the body backwards from body_end_offset.
const (
	segmentHeaderLen = 8 + 8 + 8
	recordOverhead   = 8 + 4 + 4
)

type segmentHeader struct {
	entryStart uint64
	entryEnd   uint64
	bodyEnd    uint64
}

type segment struct {
	fileNum uint64
	path    string
	file    *os.File
	header  segmentHeader

	// offsets maps entry index to the file offset of its record. Built
	// by a single body walk when the segment is opened.
	offsets map[uint64]uint64
}

func segmentPath(dir string, fileNum uint64) string {
	return filepath.Join(dir, fmt.Sprintf("floyd-%08d.log", fileNum))
}

func createSegment(dir string, fileNum, entryStart uint64) (*segment, error) {
	path := segmentPath(dir, fileNum)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create segment %s: %w", path, err)
	}

	s := &segment{
		fileNum: fileNum,
		path:    path,
		file:    f,
		header: segmentHeader{
			entryStart: entryStart,
			entryEnd:   entryStart - 1,
			bodyEnd:    segmentHeaderLen,
		},
		offsets: make(map[uint64]uint64),
	}
	if err := s.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// openSegment opens an existing segment and rebuilds its offset table.
// When repair is true (the segment being actively written), a torn or
// unrecorded suffix is reconciled: the body is walked from the header
// start and the header rewritten to cover exactly the valid prefix.
func openSegment(dir string, fileNum uint64, repair bool) (*segment, error) {
	path := segmentPath(dir, fileNum)
	f, err := os.OpenFile(path, os.O_RDWR, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", path, err)
	}

	s := &segment{
		fileNum: fileNum,
		path:    path,
		file:    f,
		offsets: make(map[uint64]uint64),
	}
	if err := s.readHeader(); err != nil {
		f.Close()
		return nil, err
	}

	scanEnd, scanLast, err := s.scanBody()
	if err != nil {
		f.Close()
		return nil, err
	}

	if repair {
		// Drop trailing bytes past the valid prefix even when the
		// header agrees with the scan; a torn append may leave garbage
		// the header never covered.
		if info, err := s.file.Stat(); err == nil && uint64(info.Size()) > scanEnd {
			if terr := s.file.Truncate(int64(scanEnd)); terr != nil {
				f.Close()
				return nil, fmt.Errorf("truncate torn suffix of %s: %w", path, terr)
			}
		}
	}

	if scanEnd != s.header.bodyEnd || scanLast != s.header.entryEnd {
		if !repair {
			f.Close()
			return nil, fmt.Errorf("%w: segment %s header (end=%d, body_end=%d) disagrees with scan (end=%d, body_end=%d)",
				ErrCorrupt, path, s.header.entryEnd, s.header.bodyEnd, scanLast, scanEnd)
		}
		s.header.entryEnd = scanLast
		s.header.bodyEnd = scanEnd
		if err := s.file.Truncate(int64(scanEnd)); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate torn suffix of %s: %w", path, err)
		}
		if err := s.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
		if err := s.file.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("sync %s: %w", path, err)
		}
	}

	return s, nil
}

// readIndexRange reads only the header of a segment file.
func readIndexRange(dir string, fileNum uint64) (entryStart, entryEnd uint64, err error) {
	f, err := os.Open(segmentPath(dir, fileNum))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var buf [segmentHeaderLen]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, 0, fmt.Errorf("%w: segment %d header: %v", ErrCorrupt, fileNum, err)
	}
	return binary.LittleEndian.Uint64(buf[0:8]), binary.LittleEndian.Uint64(buf[8:16]), nil
}

func (s *segment) writeHeader() error {
	var buf [segmentHeaderLen]byte
	binary.LittleEndian.PutUint64(buf[0:8], s.header.entryStart)
	binary.LittleEndian.PutUint64(buf[8:16], s.header.entryEnd)
	binary.LittleEndian.PutUint64(buf[16:24], s.header.bodyEnd)
	if _, err := s.file.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("write segment header %s: %w", s.path, err)
	}
	return nil
}

func (s *segment) readHeader() error {
	var buf [segmentHeaderLen]byte
	if _, err := s.file.ReadAt(buf[:], 0); err != nil {
		return fmt.Errorf("%w: segment header %s: %v", ErrCorrupt, s.path, err)
	}
	s.header.entryStart = binary.LittleEndian.Uint64(buf[0:8])
	s.header.entryEnd = binary.LittleEndian.Uint64(buf[8:16])
	s.header.bodyEnd = binary.LittleEndian.Uint64(buf[16:24])
	if s.header.bodyEnd < segmentHeaderLen {
		return fmt.Errorf("%w: segment %s body_end_offset %d below header length", ErrCorrupt, s.path, s.header.bodyEnd)
	}
	return nil
}

// scanBody walks records forward from the header, filling the offset
// table with every complete record, and returns the offset and last
// index of the valid prefix. An incomplete trailing record terminates
// the walk without error; its bytes are the torn suffix.
func (s *segment) scanBody() (bodyEnd, lastIndex uint64, err error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", s.path, err)
	}
	size := uint64(info.Size())

	offset := uint64(segmentHeaderLen)
	lastIndex = s.header.entryStart - 1

	for offset+recordOverhead <= size {
		var head [12]byte
		if _, err := s.file.ReadAt(head[:], int64(offset)); err != nil {
			break
		}
		index := binary.LittleEndian.Uint64(head[0:8])
		payloadLen := int32(binary.LittleEndian.Uint32(head[8:12]))
		if payloadLen < 0 {
			break
		}
		recordLen := uint64(recordOverhead) + uint64(payloadLen)
		if offset+recordLen > size {
			break
		}

		var tail [4]byte
		if _, err := s.file.ReadAt(tail[:], int64(offset+recordLen-4)); err != nil {
			break
		}
		if uint64(binary.LittleEndian.Uint32(tail[:])) != recordLen {
			break
		}
		if index != lastIndex+1 {
			break
		}

		s.offsets[index] = offset
		offset += recordLen
		lastIndex = index
	}

	return offset, lastIndex, nil
}

// appendEntry frames and writes one entry at the current body end,
// advances the header and rewrites it in place. Neither write is synced
// here; durability comes from the caller's sync path.
func (s *segment) appendEntry(e Entry) error {
	if e.Index != s.header.entryEnd+1 {
		panic(fmt.Sprintf("raftlog: append index %d to segment ending at %d", e.Index, s.header.entryEnd))
	}

	body := encodeEntryBody(e)
	recordLen := uint64(recordOverhead) + uint64(len(body))

	buf := make([]byte, recordLen)
	binary.LittleEndian.PutUint64(buf[0:8], e.Index)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(body)))
	copy(buf[12:], body)
	binary.LittleEndian.PutUint32(buf[recordLen-4:], uint32(recordLen))

	offset := s.header.bodyEnd
	if _, err := s.file.WriteAt(buf, int64(offset)); err != nil {
		return fmt.Errorf("append entry %d to %s: %w", e.Index, s.path, err)
	}

	s.offsets[e.Index] = offset
	s.header.entryEnd = e.Index
	s.header.bodyEnd = offset + recordLen
	return s.writeHeader()
}

func (s *segment) get(index uint64) (Entry, error) {
	offset, ok := s.offsets[index]
	if !ok {
		return Entry{}, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}

	var head [12]byte
	if _, err := s.file.ReadAt(head[:], int64(offset)); err != nil {
		return Entry{}, fmt.Errorf("read entry %d from %s: %w", index, s.path, err)
	}
	if got := binary.LittleEndian.Uint64(head[0:8]); got != index {
		return Entry{}, fmt.Errorf("%w: record at %d holds index %d, want %d", ErrCorrupt, offset, got, index)
	}
	payloadLen := binary.LittleEndian.Uint32(head[8:12])

	body := make([]byte, payloadLen)
	if _, err := s.file.ReadAt(body, int64(offset)+12); err != nil {
		return Entry{}, fmt.Errorf("read entry %d body from %s: %w", index, s.path, err)
	}
	return decodeEntryBody(index, body)
}

// truncateTo drops all records with index > lastKeep, walking the body
// backwards via the trailing record_length words.
func (s *segment) truncateTo(lastKeep uint64) error {
	if lastKeep >= s.header.entryEnd {
		return nil
	}
	if lastKeep < s.header.entryStart-1 {
		panic(fmt.Sprintf("raftlog: truncate segment [%d,%d] to %d", s.header.entryStart, s.header.entryEnd, lastKeep))
	}

	end := s.header.bodyEnd
	index := s.header.entryEnd
	for index > lastKeep {
		var tail [4]byte
		if _, err := s.file.ReadAt(tail[:], int64(end-4)); err != nil {
			return fmt.Errorf("reverse scan %s: %w", s.path, err)
		}
		recordLen := uint64(binary.LittleEndian.Uint32(tail[:]))
		if recordLen < recordOverhead || recordLen > end-segmentHeaderLen {
			return fmt.Errorf("%w: bad record length %d at offset %d in %s", ErrCorrupt, recordLen, end, s.path)
		}
		delete(s.offsets, index)
		end -= recordLen
		index--
	}

	s.header.entryEnd = lastKeep
	s.header.bodyEnd = end
	if err := s.file.Truncate(int64(end)); err != nil {
		return fmt.Errorf("truncate %s: %w", s.path, err)
	}
	if err := s.writeHeader(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) size() uint64 { return s.header.bodyEnd }

func (s *segment) empty() bool { return s.header.entryEnd < s.header.entryStart }

func (s *segment) sync() error {
	if s.file == nil {
		// Removed by a suffix truncation after this sync was queued.
		return nil
	}
	if err := s.writeHeader(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *segment) remove() error {
	if err := s.close(); err != nil {
		return err
	}
	return os.Remove(s.path)
}
