package rw

import (
	"errors"
	"io"
	"testing"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewNavMeshDataBinWriter()
	w.WriteUInt8(7)
	w.WriteUInt16(0xbeef)
	w.WriteInt32(-42)
	w.WriteFloat32s([]float32{1.5, -2.25})
	w.WriteUInt16s([]uint16{1, 2, 3})

	r := NewNavMeshDataBinReader(w.GetWriteBytes())
	if v := r.ReadUInt8(); v != 7 {
		t.Fatalf("uint8 = %d", v)
	}
	if v := r.ReadUInt16(); v != 0xbeef {
		t.Fatalf("uint16 = %x", v)
	}
	if v := r.ReadInt32(); v != -42 {
		t.Fatalf("int32 = %d", v)
	}
	fs := make([]float32, 2)
	r.ReadFloat32s(fs)
	if fs[0] != 1.5 || fs[1] != -2.25 {
		t.Fatalf("floats = %v", fs)
	}
	us := make([]uint16, 3)
	r.ReadUInt16s(us)
	if us[2] != 3 {
		t.Fatalf("uint16s = %v", us)
	}
	if r.Err() != nil || r.Len() != 0 {
		t.Fatalf("unexpected state err=%v len=%d", r.Err(), r.Len())
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewNavMeshDataBinReader([]byte{1, 2})
	_ = r.ReadUInt32()
	if !errors.Is(r.Err(), io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", r.Err())
	}
	// Sticky: later reads keep the first error and return zero values.
	if v := r.ReadUInt8(); v != 0 {
		t.Fatalf("read after error = %d", v)
	}
}
