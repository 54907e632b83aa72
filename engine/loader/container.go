package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Carmen-Shannon/oxy-ibl/common"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// Cubemap container layout, little endian:
//
//	magic "OXYC" | u32 version | u32 size | u32 mip count
//	6·mips entries of { u32 width, u32 height, u32 face, u32 level, u64 offset, u64 length }
//	raw RGBA float32 payloads at the entry offsets
const (
	containerMagic      = "OXYC"
	containerVersion    = 1
	containerHeaderSize = 16
	containerEntrySize  = 32
	maxContainerSize    = 1 << 16
)

// containerEntry locates one face of one mip level inside a container.
type containerEntry struct {
	Width  uint32
	Height uint32
	Face   uint32
	Level  uint32
	Offset uint64
	Length uint64
}

// WriteCubemap encodes every face and level of c into the container format.
//
// Parameters:
//   - w: the destination
//   - c: the cubemap to encode
//
// Returns:
//   - error: a *common.ResourceMismatchError for an invalid cubemap, or a write error
func WriteCubemap(w io.Writer, c *texture.Cubemap) error {
	if err := c.Validate(); err != nil {
		return err
	}
	mips := c.Levels()

	header := make([]byte, containerHeaderSize)
	copy(header[0:4], containerMagic)
	binary.LittleEndian.PutUint32(header[4:8], containerVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(c.Size(0)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(mips))
	if _, err := w.Write(header); err != nil {
		return err
	}

	offset := uint64(containerHeaderSize + containerEntrySize*texture.FaceCount*mips)
	entries := make([]containerEntry, 0, texture.FaceCount*mips)
	for level := range mips {
		for _, f := range texture.Faces {
			img := c.Face(f, level)
			length := uint64(len(img.Pix) * 4)
			entries = append(entries, containerEntry{
				Width:  uint32(img.Width),
				Height: uint32(img.Height),
				Face:   uint32(f),
				Level:  uint32(level),
				Offset: offset,
				Length: length,
			})
			offset += length
		}
	}
	if err := binary.Write(w, binary.LittleEndian, entries); err != nil {
		return err
	}

	for _, e := range entries {
		img := c.Face(texture.Face(e.Face), int(e.Level))
		if _, err := w.Write(common.SliceToBytes(img.Pix)); err != nil {
			return err
		}
	}
	return nil
}

// ReadCubemap decodes a container held in memory. Every face of every level must appear
// exactly once and match the halving chain of the header size.
//
// Parameters:
//   - label: the label of the returned cubemap
//   - data: the whole container
//
// Returns:
//   - *texture.Cubemap: the decoded cubemap
//   - error: a plain error for a malformed container, a *common.ResourceMismatchError for inconsistent faces
func ReadCubemap(label string, data []byte) (*texture.Cubemap, error) {
	if len(data) < containerHeaderSize || string(data[0:4]) != containerMagic {
		return nil, errors.New("container: bad magic")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != containerVersion {
		return nil, fmt.Errorf("container: unsupported version %d", v)
	}
	size := int(binary.LittleEndian.Uint32(data[8:12]))
	mips := int(binary.LittleEndian.Uint32(data[12:16]))
	if size <= 0 || size > maxContainerSize || mips <= 0 || mips > 32 {
		return nil, fmt.Errorf("container: invalid size %d or mip count %d", size, mips)
	}

	count := texture.FaceCount * mips
	tableEnd := containerHeaderSize + containerEntrySize*count
	if len(data) < tableEnd {
		return nil, errors.New("container: truncated entry table")
	}

	var faces [texture.FaceCount][]*texture.Image
	for _, f := range texture.Faces {
		faces[f] = make([]*texture.Image, mips)
	}

	for i := range count {
		raw := data[containerHeaderSize+containerEntrySize*i:]
		e := containerEntry{
			Width:  binary.LittleEndian.Uint32(raw[0:4]),
			Height: binary.LittleEndian.Uint32(raw[4:8]),
			Face:   binary.LittleEndian.Uint32(raw[8:12]),
			Level:  binary.LittleEndian.Uint32(raw[12:16]),
			Offset: binary.LittleEndian.Uint64(raw[16:24]),
			Length: binary.LittleEndian.Uint64(raw[24:32]),
		}
		if e.Face >= texture.FaceCount || int(e.Level) >= mips {
			return nil, fmt.Errorf("container: entry %d addresses face %d level %d", i, e.Face, e.Level)
		}
		if faces[e.Face][e.Level] != nil {
			return nil, &common.ResourceMismatchError{Resource: label, Level: int(e.Level), Detail: fmt.Sprintf("duplicate entry for face %s", texture.Face(e.Face))}
		}
		if e.Width > uint32(size) || e.Height > uint32(size) {
			return nil, fmt.Errorf("container: entry %d is %dx%d, larger than the %d cube", i, e.Width, e.Height, size)
		}
		if want := uint64(e.Width) * uint64(e.Height) * texture.Channels * 4; e.Length != want {
			return nil, fmt.Errorf("container: entry %d length %d, want %d", i, e.Length, want)
		}
		if e.Offset > uint64(len(data)) || e.Length > uint64(len(data))-e.Offset {
			return nil, fmt.Errorf("container: entry %d payload outside file", i)
		}

		payload := data[e.Offset : e.Offset+e.Length]
		pix := make([]float32, e.Length/4)
		for j := range pix {
			pix[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[j*4:]))
		}
		img, err := texture.NewImageFromPixels(int(e.Width), int(e.Height), pix)
		if err != nil {
			return nil, fmt.Errorf("container: entry %d: %w", i, err)
		}
		faces[e.Face][e.Level] = img
	}

	c, err := texture.NewCubemapFromFaces(label, faces)
	if err != nil {
		return nil, err
	}
	if c.Size(0) != size {
		return nil, &common.ResourceMismatchError{Resource: label, Detail: fmt.Sprintf("header size %d, level 0 is %d", size, c.Size(0))}
	}
	return c, nil
}
