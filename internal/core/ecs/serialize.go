package ecs

import (
	"fmt"
	"io"

	"github.com/blackforge/engine/internal/core/geom"
	"github.com/blackforge/engine/internal/core/stream"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// worldMagic is "BFWL" read as a little-endian u32.
const worldMagic uint32 = 0x4C574642

// Version is the snapshot format version.
type Version uint32

const VersionLatest Version = 1

// SerializeFlags select optional snapshot sections.
type SerializeFlags uint32

const (
	SerializeNone       SerializeFlags = 0
	SerializePartitions SerializeFlags = 1 << 0
)

// Serialize writes the world snapshot:
//
//	header: magic, version, module names, flags, raw size, compressed size
//	zstd blob: entities (index, transform[, partition]) up to a -1 sentinel,
//	           name table, hierarchy nodes, module payloads[, partitions]
//
// Entity handles are written as they are; Deserialize remaps them.
func (w *World) Serialize(out io.Writer, flags SerializeFlags) error {
	withPartitions := flags&SerializePartitions != 0

	hdr := stream.NewWriter()
	hdr.WriteU32(worldMagic)
	hdr.WriteU32(uint32(VersionLatest))
	hdr.WriteU32(uint32(len(w.modules)))
	for _, m := range w.modules {
		hdr.WriteString(m.Name())
	}
	hdr.WriteU32(uint32(flags))

	blob := stream.NewWriter()
	blob.WriteU32(uint32(len(w.entities.data)))
	for i := range w.entities.data {
		d := &w.entities.data[i]
		if !d.valid {
			continue
		}
		blob.WriteI32(int32(i))
		writeTransform(blob, w.entities.transforms[i])
		if withPartitions {
			blob.WriteU16(uint16(d.partition))
		}
	}
	blob.WriteI32(int32(InvalidEntity))

	blob.WriteU32(uint32(w.names.len()))
	for i := 0; i < w.names.len(); i++ {
		blob.WriteI32(int32(w.names.owner(int32(i))))
		blob.WriteString(*w.names.at(int32(i)))
	}

	blob.WriteU32(uint32(w.hierarchy.len()))
	for i := 0; i < w.hierarchy.len(); i++ {
		n := w.hierarchy.at(int32(i))
		blob.WriteI32(int32(w.hierarchy.owner(int32(i))))
		blob.WriteI32(int32(n.parent))
		blob.WriteI32(int32(n.firstChild))
		blob.WriteI32(int32(n.nextSibling))
		writeTransform(blob, n.local)
	}

	var serializable []Module
	for _, m := range w.modules {
		if _, ok := m.(Serializable); ok {
			serializable = append(serializable, m)
		}
	}
	blob.WriteU32(uint32(len(serializable)))
	for _, m := range serializable {
		s := m.(Serializable)
		blob.WriteString(m.Name())
		blob.WriteI32(s.Version())
		off := blob.Reserve(4)
		start := blob.Len()
		s.Serialize(blob)
		blob.PatchU32(off, uint32(blob.Len()-start))
	}

	if withPartitions {
		blob.WriteU32(uint32(len(w.partitions)))
		for _, p := range w.partitions {
			blob.WriteU16(uint16(p.Handle))
			blob.WriteString(p.Name)
		}
		blob.WriteU16(uint16(w.activePartition))
		blob.WriteU16(uint16(w.partitionGen))
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	compressed := enc.EncodeAll(blob.Bytes(), nil)
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}

	hdr.WriteU32(uint32(blob.Len()))
	hdr.WriteU32(uint32(len(compressed)))
	hdr.WriteBytes(compressed)
	if _, err := out.Write(hdr.Bytes()); err != nil {
		return fmt.Errorf("write world: %w", err)
	}
	return nil
}

// Deserialize loads a snapshot additively: every stored entity becomes a fresh entity
// and m records old index -> new entity. Callers holding entity handles of their own
// from the same snapshot must pass them through m. If the payload turns out to be
// corrupt, the entities created by this call are destroyed again before returning.
func (w *World) Deserialize(in io.Reader, m *EntityMap) (Version, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return 0, fmt.Errorf("read world: %w", err)
	}
	r := stream.NewReader(raw)
	magic := r.ReadU32()
	version := Version(r.ReadU32())
	if r.Overflow() || magic != worldMagic {
		return 0, ErrBadMagic
	}
	if version > VersionLatest {
		return version, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	moduleCount := r.ReadU32()
	for i := uint32(0); i < moduleCount && !r.Overflow(); i++ {
		name := r.ReadString()
		if w.Module(name) == nil {
			w.log.Error("missing module", zap.String("module", name))
			return version, fmt.Errorf("%w: %s", ErrMissingModule, name)
		}
	}
	flags := SerializeFlags(r.ReadU32())
	rawSize := r.ReadU32()
	compressed := r.ReadBytes(int(r.ReadU32()))
	if r.Overflow() {
		return version, ErrCorrupted
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return version, fmt.Errorf("create decoder: %w", err)
	}
	defer dec.Close()
	data, err := dec.DecodeAll(compressed, make([]byte, 0, rawSize))
	if err != nil {
		return version, fmt.Errorf("decompress world: %w", err)
	}
	if uint32(len(data)) != rawSize {
		return version, ErrCorrupted
	}

	var created []EntityRef
	if err := w.readBlob(stream.NewReader(data), m, flags, &created); err != nil {
		w.discardLoaded(created)
		w.log.Warn("world load rolled back", zap.Int("entities", len(created)), zap.Error(err))
		return version, err
	}
	w.log.Debug("world deserialized",
		zap.Int("entities", m.Len()),
		zap.Int("live", w.EntityCount()),
		zap.Int("hierarchy", w.hierarchy.len()))
	return version, nil
}

func (w *World) readBlob(b *stream.Reader, m *EntityMap, flags SerializeFlags, created *[]EntityRef) error {
	withPartitions := flags&SerializePartitions != 0

	tableSize := b.ReadU32()
	for {
		idx := b.ReadI32()
		if b.Overflow() {
			return ErrCorrupted
		}
		if idx < 0 {
			break
		}
		if uint32(idx) >= tableSize {
			return fmt.Errorf("%w: entity %d outside table of %d", ErrCorrupted, idx, tableSize)
		}
		e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
		*created = append(*created, e)
		m.Set(EntityRef(idx), e)
		w.entities.transforms[e] = readTransform(b)
		if withPartitions {
			w.entities.data[e].partition = PartitionHandle(b.ReadU16())
		}
	}

	count := b.ReadU32()
	for i := uint32(0); i < count; i++ {
		owner := m.Get(EntityPtr(b.ReadI32()))
		name := b.ReadString()
		if b.Overflow() || !owner.IsValid() {
			return fmt.Errorf("%w: name table", ErrCorrupted)
		}
		e := owner.MustRef()
		if !w.entities.has(e) || w.entities.data[e].name >= 0 {
			return fmt.Errorf("%w: name table entry for entity %d", ErrCorrupted, e)
		}
		w.entities.data[e].name = w.names.add(e, normalizeName(name))
	}

	count = b.ReadU32()
	for i := uint32(0); i < count; i++ {
		owner := m.Get(EntityPtr(b.ReadI32()))
		n := hierarchyNode{
			parent:      m.Get(EntityPtr(b.ReadI32())),
			firstChild:  m.Get(EntityPtr(b.ReadI32())),
			nextSibling: m.Get(EntityPtr(b.ReadI32())),
			local:       readTransform(b),
		}
		if b.Overflow() || !owner.IsValid() {
			return fmt.Errorf("%w: hierarchy", ErrCorrupted)
		}
		e := owner.MustRef()
		if !w.entities.has(e) || w.entities.data[e].hierarchy >= 0 {
			return fmt.Errorf("%w: hierarchy entry for entity %d", ErrCorrupted, e)
		}
		w.entities.data[e].hierarchy = w.hierarchy.add(e, n)
	}

	count = b.ReadU32()
	for i := uint32(0); i < count; i++ {
		name := b.ReadString()
		version := b.ReadI32()
		payload := b.ReadBytes(int(b.ReadU32()))
		if b.Overflow() {
			return fmt.Errorf("%w: module section", ErrCorrupted)
		}
		mod := w.Module(name)
		if mod == nil {
			return fmt.Errorf("%w: %s", ErrMissingModule, name)
		}
		s, ok := mod.(Serializable)
		if !ok {
			return fmt.Errorf("%w: module %s stores no data", ErrCorrupted, name)
		}
		if err := s.Deserialize(stream.NewReader(payload), m, version); err != nil {
			return fmt.Errorf("deserialize module %s: %w", name, err)
		}
	}

	if withPartitions {
		count = b.ReadU32()
		partitions := make([]Partition, 0, count)
		for i := uint32(0); i < count && !b.Overflow(); i++ {
			h := PartitionHandle(b.ReadU16())
			partitions = append(partitions, Partition{Handle: h, Name: b.ReadString()})
		}
		active := PartitionHandle(b.ReadU16())
		gen := PartitionHandle(b.ReadU16())
		if b.Overflow() {
			return fmt.Errorf("%w: partitions", ErrCorrupted)
		}
		w.partitions = partitions
		w.activePartition = active
		w.partitionGen = gen
	}
	return nil
}

// discardLoaded destroys the entities of a failed load. Their hierarchy nodes came
// from the corrupt payload, so they are dropped without relinking.
func (w *World) discardLoaded(created []EntityRef) {
	for _, e := range created {
		if !w.entities.has(e) {
			continue
		}
		if h := w.entities.data[e].hierarchy; h >= 0 {
			w.hierarchy.remove(h)
			w.entities.data[e].hierarchy = -1
		}
	}
	for _, e := range created {
		if w.entities.has(e) {
			w.destroyOne(e)
		}
	}
}

func writeTransform(b *stream.Writer, t geom.Transform) {
	b.WriteVec3(t.Pos)
	b.WriteQuat(t.Rot)
	b.WriteVec3(t.Scale)
}

func readTransform(b *stream.Reader) geom.Transform {
	return geom.Transform{Pos: b.ReadVec3(), Rot: b.ReadQuat(), Scale: b.ReadVec3()}
}
