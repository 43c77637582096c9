package resource

import (
	"math/bits"
	"strings"

	"github.com/gogpu/gputypes"
)

// BufferUse describes how a buffer is accessed by recorded commands.
type BufferUse uint32

// Buffer usage flags.
const (
	BufferUseMapRead BufferUse = 1 << iota
	BufferUseMapWrite
	BufferUseCopySrc
	BufferUseCopyDst
	BufferUseIndex
	BufferUseVertex
	BufferUseUniform
	BufferUseStorageLoad
	BufferUseStorageStore
	BufferUseIndirect

	// BufferUseNone is the state of a buffer no command has touched yet.
	BufferUseNone BufferUse = 0

	// BufferUseReadAll holds every read-only usage.
	BufferUseReadAll = BufferUseMapRead | BufferUseCopySrc | BufferUseIndex |
		BufferUseVertex | BufferUseUniform | BufferUseStorageLoad | BufferUseIndirect

	// BufferUseWriteAll holds every usage that writes the buffer.
	BufferUseWriteAll = BufferUseMapWrite | BufferUseCopyDst | BufferUseStorageStore
)

var bufferUseNames = [...]string{
	"MAP_READ", "MAP_WRITE", "COPY_SRC", "COPY_DST", "INDEX",
	"VERTEX", "UNIFORM", "STORAGE_LOAD", "STORAGE_STORE", "INDIRECT",
}

// IsReadOnly reports whether u contains no writing usage.
func (u BufferUse) IsReadOnly() bool { return u&BufferUseWriteAll == 0 }

// IsValid reports whether u is a usage a buffer may be in during one pass:
// any combination of reads, or exactly one write.
func (u BufferUse) IsValid() bool {
	return u.IsReadOnly() || bits.OnesCount32(uint32(u)) == 1
}

// IsCompatible reports whether u may be extended with other inside a
// single usage scope.
func (u BufferUse) IsCompatible(other BufferUse) bool {
	return u == BufferUseNone || u == other || (u.IsReadOnly() && other.IsReadOnly())
}

// ToGPU maps u onto the WebGPU buffer usage bits it requires.
func (u BufferUse) ToGPU() gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&BufferUseMapRead != 0 {
		out |= gputypes.BufferUsageMapRead
	}
	if u&BufferUseMapWrite != 0 {
		out |= gputypes.BufferUsageMapWrite
	}
	if u&BufferUseCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if u&BufferUseCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	if u&BufferUseIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&BufferUseVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&BufferUseUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&(BufferUseStorageLoad|BufferUseStorageStore) != 0 {
		out |= gputypes.BufferUsageStorage
	}
	if u&BufferUseIndirect != 0 {
		out |= gputypes.BufferUsageIndirect
	}
	return out
}

// String returns the flag names joined by '|'.
func (u BufferUse) String() string {
	return flagString(uint32(u), bufferUseNames[:])
}

// TextureUse describes how a texture is accessed by recorded commands.
// Every usage implies an image layout; see the hal package.
type TextureUse uint32

// Texture usage flags.
const (
	TextureUseCopySrc TextureUse = 1 << iota
	TextureUseCopyDst
	TextureUseSampled
	TextureUseAttachmentRead
	TextureUseAttachmentWrite
	TextureUseStorageLoad
	TextureUseStorageStore

	// TextureUseUninitialized is the state of a texture no command has
	// touched yet. Its contents may be discarded by the first transition.
	TextureUseUninitialized TextureUse = 0

	// TextureUseReadAll holds every read-only usage.
	TextureUseReadAll = TextureUseCopySrc | TextureUseSampled |
		TextureUseAttachmentRead | TextureUseStorageLoad

	// TextureUseWriteAll holds every usage that writes the texture.
	TextureUseWriteAll = TextureUseCopyDst | TextureUseAttachmentWrite | TextureUseStorageStore
)

var textureUseNames = [...]string{
	"COPY_SRC", "COPY_DST", "SAMPLED", "ATTACHMENT_READ",
	"ATTACHMENT_WRITE", "STORAGE_LOAD", "STORAGE_STORE",
}

// IsReadOnly reports whether u contains no writing usage.
func (u TextureUse) IsReadOnly() bool { return u&TextureUseWriteAll == 0 }

// IsValid reports whether u is a usage a texture may be in during one pass.
func (u TextureUse) IsValid() bool {
	return u.IsReadOnly() || bits.OnesCount32(uint32(u)) == 1
}

// IsCompatible reports whether u may be extended with other inside a
// single usage scope.
func (u TextureUse) IsCompatible(other TextureUse) bool {
	return u == TextureUseUninitialized || u == other || (u.IsReadOnly() && other.IsReadOnly())
}

// ToGPU maps u onto the WebGPU texture usage bits it requires.
func (u TextureUse) ToGPU() gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&TextureUseCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&TextureUseCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&TextureUseSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&(TextureUseAttachmentRead|TextureUseAttachmentWrite) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	if u&(TextureUseStorageLoad|TextureUseStorageStore) != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	return out
}

// String returns the flag names joined by '|'.
func (u TextureUse) String() string {
	return flagString(uint32(u), textureUseNames[:])
}

func flagString(v uint32, names []string) string {
	if v == 0 {
		return "NONE"
	}
	var sb strings.Builder
	for i, name := range names {
		if v&(1<<i) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(name)
		v &^= 1 << i
	}
	if v != 0 {
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("UNKNOWN")
	}
	return sb.String()
}
