package recast

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/common/rw"
	"github.com/gorustyt/irrnav/config"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"
)

// Tile blobs are wrapped in a small envelope so a loader can tell the payload
// encoding and compression apart:
//
//	"NTBL" | version u8 | encoding u8 | compression u8 | payload
var tileBlobMagic = []byte("NTBL")

const (
	tileBlobVersion = 1

	tileEncodingBinary   = 0
	tileEncodingProtobuf = 1

	tileCompressionNone = 0
	tileCompressionZstd = 1
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// EncodeTile serializes tile data with the given payload encoding and
// compression.
func EncodeTile(d *NavMeshData, enc config.TileEncoding, comp config.Compression) ([]byte, error) {
	var payload []byte
	var encByte, compByte byte
	switch enc {
	case config.EncodingBinary, "":
		payload = d.ToBin()
		encByte = tileEncodingBinary
	case config.EncodingProtobuf:
		payload = d.ToProto()
		encByte = tileEncodingProtobuf
	default:
		return nil, fmt.Errorf("encode tile: unknown encoding %q: %w", enc, common.ErrInput)
	}
	switch comp {
	case config.CompressionNone, "":
		compByte = tileCompressionNone
	case config.CompressionZstd:
		e, _, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("encode tile: zstd: %w", err)
		}
		payload = e.EncodeAll(payload, nil)
		compByte = tileCompressionZstd
	default:
		return nil, fmt.Errorf("encode tile: unknown compression %q: %w", comp, common.ErrInput)
	}

	out := make([]byte, 0, len(tileBlobMagic)+3+len(payload))
	out = append(out, tileBlobMagic...)
	out = append(out, tileBlobVersion, encByte, compByte)
	return append(out, payload...), nil
}

// DecodeTile reverses EncodeTile and validates the decoded data.
func DecodeTile(blob []byte) (*NavMeshData, error) {
	if len(blob) < len(tileBlobMagic)+3 || !bytes.Equal(blob[:len(tileBlobMagic)], tileBlobMagic) {
		return nil, fmt.Errorf("decode tile: not a tile blob: %w", common.ErrInput)
	}
	hdr := blob[len(tileBlobMagic):]
	if hdr[0] != tileBlobVersion {
		return nil, fmt.Errorf("decode tile: blob version %d: %w", hdr[0], common.ErrInput)
	}
	payload := hdr[3:]
	switch hdr[2] {
	case tileCompressionNone:
	case tileCompressionZstd:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("decode tile: zstd: %w", err)
		}
		payload, err = dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decode tile: zstd: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode tile: unknown compression %d: %w", hdr[2], common.ErrInput)
	}

	d := &NavMeshData{}
	var err error
	switch hdr[1] {
	case tileEncodingBinary:
		err = d.FromBin(payload)
	case tileEncodingProtobuf:
		err = d.FromProto(payload)
	default:
		err = fmt.Errorf("unknown encoding %d: %w", hdr[1], common.ErrInput)
	}
	if err != nil {
		return nil, fmt.Errorf("decode tile: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("decode tile: %w", err)
	}
	return d, nil
}

func (h *NavMeshHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.X)
	w.WriteInt32(h.Y)
	w.WriteInt32(h.Layer)
	w.WriteInt32(h.PolyCount)
	w.WriteInt32(h.VertCount)
	w.WriteInt32(h.DetailMeshCount)
	w.WriteInt32(h.DetailVertCount)
	w.WriteInt32(h.DetailTriCount)
	w.WriteFloat32(h.WalkableHeight)
	w.WriteFloat32(h.WalkableRadius)
	w.WriteFloat32(h.WalkableClimb)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
}

func (h *NavMeshHeader) FromBin(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.X = r.ReadInt32()
	h.Y = r.ReadInt32()
	h.Layer = r.ReadInt32()
	h.PolyCount = r.ReadInt32()
	h.VertCount = r.ReadInt32()
	h.DetailMeshCount = r.ReadInt32()
	h.DetailVertCount = r.ReadInt32()
	h.DetailTriCount = r.ReadInt32()
	h.WalkableHeight = r.ReadFloat32()
	h.WalkableRadius = r.ReadFloat32()
	h.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
}

func (p *NavPoly) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt16s(p.Verts[:])
	w.WriteUInt16s(p.Neis[:])
	w.WriteUInt16(p.Flags)
	w.WriteUInt8(p.VertCount)
	w.WriteUInt8(p.Area)
}

func (p *NavPoly) FromBin(r *rw.ReaderWriter) {
	r.ReadUInt16s(p.Verts[:])
	r.ReadUInt16s(p.Neis[:])
	p.Flags = r.ReadUInt16()
	p.VertCount = r.ReadUInt8()
	p.Area = r.ReadUInt8()
}

func (p *NavPolyDetail) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt32(p.VertBase)
	w.WriteUInt32(p.TriBase)
	w.WriteUInt32(p.VertCount)
	w.WriteUInt32(p.TriCount)
}

func (p *NavPolyDetail) FromBin(r *rw.ReaderWriter) {
	p.VertBase = r.ReadUInt32()
	p.TriBase = r.ReadUInt32()
	p.VertCount = r.ReadUInt32()
	p.TriCount = r.ReadUInt32()
}

// ToBin writes the tile in the fixed little-endian layout: header, vertices,
// polygons, detail meshes, detail vertices, detail triangles.
func (d *NavMeshData) ToBin() []byte {
	w := rw.NewNavMeshDataBinWriter()
	d.Header.ToBin(w)
	w.WriteFloat32s(d.Verts)
	for i := range d.Polys {
		d.Polys[i].ToBin(w)
	}
	for i := range d.DetailMeshes {
		d.DetailMeshes[i].ToBin(w)
	}
	w.WriteFloat32s(d.DetailVerts)
	w.WriteUInt8s(d.DetailTris)
	return w.GetWriteBytes()
}

// maxTileElements bounds the counts a header may claim before allocation.
const maxTileElements = 1 << 24

func checkCount(name string, n int32) error {
	if n < 0 || n > maxTileElements {
		return fmt.Errorf("tile data: %s count %d: %w", name, n, common.ErrInput)
	}
	return nil
}

func (d *NavMeshData) FromBin(data []byte) error {
	r := rw.NewNavMeshDataBinReader(data)
	d.Header.FromBin(r)
	if err := r.Err(); err != nil {
		return err
	}
	h := &d.Header
	for _, c := range []struct {
		name string
		n    int32
	}{
		{"poly", h.PolyCount}, {"vert", h.VertCount}, {"detail mesh", h.DetailMeshCount},
		{"detail vert", h.DetailVertCount}, {"detail tri", h.DetailTriCount},
	} {
		if err := checkCount(c.name, c.n); err != nil {
			return err
		}
	}
	d.Verts = make([]float32, h.VertCount*3)
	r.ReadFloat32s(d.Verts)
	d.Polys = make([]NavPoly, h.PolyCount)
	for i := range d.Polys {
		d.Polys[i].FromBin(r)
	}
	d.DetailMeshes = make([]NavPolyDetail, h.DetailMeshCount)
	for i := range d.DetailMeshes {
		d.DetailMeshes[i].FromBin(r)
	}
	d.DetailVerts = make([]float32, h.DetailVertCount*3)
	r.ReadFloat32s(d.DetailVerts)
	d.DetailTris = make([]uint8, h.DetailTriCount*4)
	r.ReadUInt8s(d.DetailTris)
	if err := r.Err(); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("tile data: %d trailing bytes: %w", r.Len(), common.ErrInput)
	}
	return nil
}

// Protobuf wire layout of a tile:
//
//	message Tile {
//	  Header header = 1;
//	  repeated float verts = 2;          // packed
//	  repeated Poly polys = 3;
//	  repeated Detail detail_meshes = 4;
//	  repeated float detail_verts = 5;   // packed
//	  bytes detail_tris = 6;
//	}
//	message Header {
//	  int32 magic = 1; int32 version = 2; int32 x = 3; int32 y = 4; int32 layer = 5;
//	  int32 poly_count = 6; int32 vert_count = 7; int32 detail_mesh_count = 8;
//	  int32 detail_vert_count = 9; int32 detail_tri_count = 10;
//	  float walkable_height = 11; float walkable_radius = 12; float walkable_climb = 13;
//	  repeated float bmin = 14; repeated float bmax = 15;
//	}
//	message Poly { repeated uint32 verts = 1; repeated uint32 neis = 2; uint32 flags = 3; uint32 vert_count = 4; uint32 area = 5; }
//	message Detail { uint32 vert_base = 1; uint32 tri_base = 2; uint32 vert_count = 3; uint32 tri_count = 4; }

func appendPackedFloats(b []byte, num protowire.Number, v []float32) []byte {
	if len(v) == 0 {
		return b
	}
	inner := make([]byte, 0, len(v)*4)
	for _, f := range v {
		inner = protowire.AppendFixed32(inner, math.Float32bits(f))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func appendPackedVarints(b []byte, num protowire.Number, v []uint16) []byte {
	var inner []byte
	for _, x := range v {
		inner = protowire.AppendVarint(inner, uint64(x))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFloatField(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendInt32Field(b []byte, num protowire.Number, v int32) []byte {
	return appendVarintField(b, num, uint64(int64(v)))
}

func (h *NavMeshHeader) appendProto(b []byte) []byte {
	b = appendInt32Field(b, 1, h.Magic)
	b = appendInt32Field(b, 2, h.Version)
	b = appendInt32Field(b, 3, h.X)
	b = appendInt32Field(b, 4, h.Y)
	b = appendInt32Field(b, 5, h.Layer)
	b = appendInt32Field(b, 6, h.PolyCount)
	b = appendInt32Field(b, 7, h.VertCount)
	b = appendInt32Field(b, 8, h.DetailMeshCount)
	b = appendInt32Field(b, 9, h.DetailVertCount)
	b = appendInt32Field(b, 10, h.DetailTriCount)
	b = appendFloatField(b, 11, h.WalkableHeight)
	b = appendFloatField(b, 12, h.WalkableRadius)
	b = appendFloatField(b, 13, h.WalkableClimb)
	b = appendPackedFloats(b, 14, h.Bmin[:])
	b = appendPackedFloats(b, 15, h.Bmax[:])
	return b
}

func (p *NavPoly) appendProto(b []byte) []byte {
	b = appendPackedVarints(b, 1, p.Verts[:])
	b = appendPackedVarints(b, 2, p.Neis[:])
	b = appendVarintField(b, 3, uint64(p.Flags))
	b = appendVarintField(b, 4, uint64(p.VertCount))
	b = appendVarintField(b, 5, uint64(p.Area))
	return b
}

func (p *NavPolyDetail) appendProto(b []byte) []byte {
	b = appendVarintField(b, 1, uint64(p.VertBase))
	b = appendVarintField(b, 2, uint64(p.TriBase))
	b = appendVarintField(b, 3, uint64(p.VertCount))
	b = appendVarintField(b, 4, uint64(p.TriCount))
	return b
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// ToProto writes the tile in protobuf wire format.
func (d *NavMeshData) ToProto() []byte {
	var b []byte
	b = appendMessage(b, 1, d.Header.appendProto(nil))
	b = appendPackedFloats(b, 2, d.Verts)
	var scratch []byte
	for i := range d.Polys {
		scratch = d.Polys[i].appendProto(scratch[:0])
		b = appendMessage(b, 3, scratch)
	}
	for i := range d.DetailMeshes {
		scratch = d.DetailMeshes[i].appendProto(scratch[:0])
		b = appendMessage(b, 4, scratch)
	}
	b = appendPackedFloats(b, 5, d.DetailVerts)
	if len(d.DetailTris) > 0 {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, d.DetailTris)
	}
	return b
}

// protoFields walks the fields of one message, calling fn with the field
// number, wire type and the remaining buffer positioned at the value. fn
// returns the number of bytes consumed or a negative protowire error code.
func protoFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("tile proto: %w: %w", protowire.ParseError(n), common.ErrInput)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m < 0 {
			return fmt.Errorf("tile proto: field %d: %w: %w", num, protowire.ParseError(m), common.ErrInput)
		}
		b = b[m:]
	}
	return nil
}

func consumePackedFloats(typ protowire.Type, b []byte, dst *[]float32) int {
	if typ != protowire.BytesType {
		return protowire.ConsumeFieldValue(0, typ, b)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	for len(v) > 0 {
		x, m := protowire.ConsumeFixed32(v)
		if m < 0 {
			return m
		}
		*dst = append(*dst, math.Float32frombits(x))
		v = v[m:]
	}
	return n
}

func consumePackedUint16s(typ protowire.Type, b []byte, dst []uint16) int {
	if typ != protowire.BytesType {
		return protowire.ConsumeFieldValue(0, typ, b)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	for i := 0; len(v) > 0; i++ {
		x, m := protowire.ConsumeVarint(v)
		if m < 0 {
			return m
		}
		if i < len(dst) {
			dst[i] = uint16(x)
		}
		v = v[m:]
	}
	return n
}

func consumeVarintInto[T ~int32 | ~uint32 | ~uint16 | ~uint8](typ protowire.Type, b []byte, dst *T) int {
	if typ != protowire.VarintType {
		return protowire.ConsumeFieldValue(0, typ, b)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n
	}
	*dst = T(v)
	return n
}

func consumeFloatInto(typ protowire.Type, b []byte, dst *float32) int {
	if typ != protowire.Fixed32Type {
		return protowire.ConsumeFieldValue(0, typ, b)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return n
	}
	*dst = math.Float32frombits(v)
	return n
}

func (h *NavMeshHeader) fromProto(b []byte) error {
	var bmin, bmax []float32
	err := protoFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeVarintInto(typ, b, &h.Magic)
		case 2:
			return consumeVarintInto(typ, b, &h.Version)
		case 3:
			return consumeVarintInto(typ, b, &h.X)
		case 4:
			return consumeVarintInto(typ, b, &h.Y)
		case 5:
			return consumeVarintInto(typ, b, &h.Layer)
		case 6:
			return consumeVarintInto(typ, b, &h.PolyCount)
		case 7:
			return consumeVarintInto(typ, b, &h.VertCount)
		case 8:
			return consumeVarintInto(typ, b, &h.DetailMeshCount)
		case 9:
			return consumeVarintInto(typ, b, &h.DetailVertCount)
		case 10:
			return consumeVarintInto(typ, b, &h.DetailTriCount)
		case 11:
			return consumeFloatInto(typ, b, &h.WalkableHeight)
		case 12:
			return consumeFloatInto(typ, b, &h.WalkableRadius)
		case 13:
			return consumeFloatInto(typ, b, &h.WalkableClimb)
		case 14:
			return consumePackedFloats(typ, b, &bmin)
		case 15:
			return consumePackedFloats(typ, b, &bmax)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return err
	}
	if len(bmin) != 3 || len(bmax) != 3 {
		return fmt.Errorf("tile proto: header bounds: %w", common.ErrInput)
	}
	copy(h.Bmin[:], bmin)
	copy(h.Bmax[:], bmax)
	return nil
}

func (p *NavPoly) fromProto(b []byte) error {
	return protoFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumePackedUint16s(typ, b, p.Verts[:])
		case 2:
			return consumePackedUint16s(typ, b, p.Neis[:])
		case 3:
			return consumeVarintInto(typ, b, &p.Flags)
		case 4:
			return consumeVarintInto(typ, b, &p.VertCount)
		case 5:
			return consumeVarintInto(typ, b, &p.Area)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

func (p *NavPolyDetail) fromProto(b []byte) error {
	return protoFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeVarintInto(typ, b, &p.VertBase)
		case 2:
			return consumeVarintInto(typ, b, &p.TriBase)
		case 3:
			return consumeVarintInto(typ, b, &p.VertCount)
		case 4:
			return consumeVarintInto(typ, b, &p.TriCount)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

// FromProto reads a tile written by ToProto.
func (d *NavMeshData) FromProto(data []byte) error {
	var sub error
	err := protoFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1, 3, 4:
			if typ != protowire.BytesType {
				return protowire.ConsumeFieldValue(num, typ, b)
			}
			msg, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			var err error
			switch num {
			case 1:
				err = d.Header.fromProto(msg)
			case 3:
				var p NavPoly
				err = p.fromProto(msg)
				d.Polys = append(d.Polys, p)
			case 4:
				var p NavPolyDetail
				err = p.fromProto(msg)
				d.DetailMeshes = append(d.DetailMeshes, p)
			}
			if err != nil && sub == nil {
				sub = err
			}
			return n
		case 2:
			return consumePackedFloats(typ, b, &d.Verts)
		case 5:
			return consumePackedFloats(typ, b, &d.DetailVerts)
		case 6:
			if typ != protowire.BytesType {
				return protowire.ConsumeFieldValue(num, typ, b)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			d.DetailTris = append(d.DetailTris, v...)
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return err
	}
	return sub
}
