package tilestore

import (
	"encoding/binary"
	"fmt"
)

// Tile frame layout: 4-byte magic, little-endian uint32 uncompressed length,
// zstd stream. The length field lets decode pre-size its buffer and catches
// truncated frames.
const tileMagic = "RTL1"

func (s *Store) encodeTile(raw []byte) []byte {
	frame := make([]byte, 8, 8+len(raw)/2)
	copy(frame, tileMagic)
	binary.LittleEndian.PutUint32(frame[4:], uint32(len(raw)))
	return s.enc.EncodeAll(raw, frame)
}

func (s *Store) decodeTile(frame []byte) ([]byte, error) {
	if len(frame) < 8 || string(frame[:4]) != tileMagic {
		return nil, fmt.Errorf("bad tile frame")
	}
	want := binary.LittleEndian.Uint32(frame[4:])
	raw, err := s.dec.DecodeAll(frame[8:], make([]byte, 0, want))
	if err != nil {
		return nil, fmt.Errorf("decompressing tile: %w", err)
	}
	if len(raw) != int(want) {
		return nil, fmt.Errorf("tile decompressed to %d bytes, frame declares %d", len(raw), want)
	}
	return raw, nil
}
