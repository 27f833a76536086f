package renderer

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type allocationKind uint8

const (
	allocationBuffer allocationKind = iota
	allocationImage
)

type allocationKey struct {
	kind allocationKind
	id   uint64
}

type allocationRecord struct {
	name string
	size uint64
}

// Allocator creates and destroys buffers and images and keeps track of the
// ones still alive.
type Allocator struct {
	device    MemoryDevice
	immediate *ImmediateSubmitter

	mu   sync.Mutex
	live *swiss.Map[allocationKey, allocationRecord]
}

func NewAllocator(device MemoryDevice, immediate *ImmediateSubmitter) *Allocator {
	return &Allocator{
		device:    device,
		immediate: immediate,
		live:      swiss.NewMap[allocationKey, allocationRecord](64),
	}
}

func (a *Allocator) CreateBuffer(size uint64, usage metadata.BufferUsageFlags, memoryUsage metadata.MemoryUsage) (metadata.AllocatedBuffer, error) {
	handle, err := a.device.CreateBuffer(metadata.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		MemoryUsage: memoryUsage,
	})
	if err != nil {
		return metadata.AllocatedBuffer{}, errors.Wrapf(err, "creating buffer of %d bytes", size)
	}
	buf := metadata.AllocatedBuffer{
		Buffer:      handle,
		Size:        size,
		Usage:       usage,
		MemoryUsage: memoryUsage,
		Name:        core.NewResourceName("buffer"),
	}
	a.track(allocationKey{allocationBuffer, uint64(handle)}, allocationRecord{name: buf.Name, size: size})
	return buf, nil
}

func (a *Allocator) DestroyBuffer(buf metadata.AllocatedBuffer) {
	key := allocationKey{allocationBuffer, uint64(buf.Buffer)}
	if !a.untrack(key) {
		core.LogWarn("destroying unknown buffer %s", buf.Name)
		return
	}
	a.device.DestroyBuffer(buf.Buffer)
}

// WriteBuffer copies data through the mapped pointer of a host visible buffer.
func (a *Allocator) WriteBuffer(buf metadata.AllocatedBuffer, offset uint64, data []byte) error {
	if !buf.Mapped() {
		return errors.Newf("buffer %s is not host visible", buf.Name)
	}
	if offset+uint64(len(data)) > buf.Size {
		return errors.Newf("write of %d bytes at %d overflows buffer %s of %d bytes", len(data), offset, buf.Name, buf.Size)
	}
	return a.device.WriteBuffer(buf.Buffer, offset, data)
}

// CreateImage creates an image and a view over all of its mip levels.
func (a *Allocator) CreateImage(info metadata.ImageCreateInfo) (metadata.AllocatedImage, error) {
	mipLevels := uint32(1)
	if info.Mipmapped {
		mipLevels = math.MipLevels(info.Extent.Width, info.Extent.Height)
	}
	image, err := a.device.CreateImage(metadata.ImageDesc{
		Extent:      info.Extent,
		Format:      info.Format,
		Usage:       info.Usage,
		MemoryUsage: info.MemoryUsage,
		MipLevels:   mipLevels,
	})
	if err != nil {
		return metadata.AllocatedImage{}, errors.Wrapf(err, "creating image %dx%d", info.Extent.Width, info.Extent.Height)
	}
	view, err := a.device.CreateImageView(image, info.Format, mipLevels)
	if err != nil {
		a.device.DestroyImage(image)
		return metadata.AllocatedImage{}, errors.Wrap(err, "creating image view")
	}

	img := metadata.AllocatedImage{
		Image:     image,
		View:      view,
		Extent:    info.Extent,
		Format:    info.Format,
		MipLevels: mipLevels,
		Name:      core.NewResourceName("image"),
	}
	a.track(allocationKey{allocationImage, uint64(image)}, allocationRecord{name: img.Name})
	return img, nil
}

func (a *Allocator) DestroyImage(img metadata.AllocatedImage) {
	key := allocationKey{allocationImage, uint64(img.Image)}
	if !a.untrack(key) {
		core.LogWarn("destroying unknown image %s", img.Name)
		return
	}
	a.device.DestroyImageView(img.View)
	a.device.DestroyImage(img.Image)
}

// UploadMesh copies indices and vertices into device local buffers through a
// staging buffer and an immediate submit.
func (a *Allocator) UploadMesh(indices []uint32, vertices []metadata.Vertex) (metadata.MeshBuffers, error) {
	vertexData := metadata.VertexBytes(vertices)
	indexData := metadata.IndexBytes(indices)
	if len(vertexData) == 0 || len(indexData) == 0 {
		return metadata.MeshBuffers{}, errors.New("mesh needs at least one vertex and one index")
	}

	var mesh metadata.MeshBuffers
	var err error
	mesh.VertexBuffer, err = a.CreateBuffer(uint64(len(vertexData)),
		metadata.BufferUsageVertex|metadata.BufferUsageStorage|metadata.BufferUsageTransferDst, metadata.MemoryUsageGPUOnly)
	if err != nil {
		return metadata.MeshBuffers{}, err
	}
	mesh.IndexBuffer, err = a.CreateBuffer(uint64(len(indexData)),
		metadata.BufferUsageIndex|metadata.BufferUsageTransferDst, metadata.MemoryUsageGPUOnly)
	if err != nil {
		a.DestroyBuffer(mesh.VertexBuffer)
		return metadata.MeshBuffers{}, err
	}

	staging, err := a.CreateBuffer(uint64(len(vertexData)+len(indexData)), metadata.BufferUsageTransferSrc, metadata.MemoryUsageCPUOnly)
	if err != nil {
		a.DestroyMesh(mesh)
		return metadata.MeshBuffers{}, err
	}
	defer a.DestroyBuffer(staging)

	if err := a.WriteBuffer(staging, 0, vertexData); err != nil {
		a.DestroyMesh(mesh)
		return metadata.MeshBuffers{}, err
	}
	if err := a.WriteBuffer(staging, uint64(len(vertexData)), indexData); err != nil {
		a.DestroyMesh(mesh)
		return metadata.MeshBuffers{}, err
	}

	err = a.immediate.SubmitAndWait(func(cmd CommandRecorder) {
		cmd.CopyBuffer(staging.Buffer, mesh.VertexBuffer.Buffer, metadata.BufferCopy{
			Size: uint64(len(vertexData)),
		})
		cmd.CopyBuffer(staging.Buffer, mesh.IndexBuffer.Buffer, metadata.BufferCopy{
			SrcOffset: uint64(len(vertexData)),
			Size:      uint64(len(indexData)),
		})
	})
	if err != nil {
		a.DestroyMesh(mesh)
		return metadata.MeshBuffers{}, errors.Wrap(err, "uploading mesh")
	}
	return mesh, nil
}

func (a *Allocator) DestroyMesh(mesh metadata.MeshBuffers) {
	a.DestroyBuffer(mesh.IndexBuffer)
	a.DestroyBuffer(mesh.VertexBuffer)
}

func (a *Allocator) track(key allocationKey, record allocationRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live.Put(key, record)
}

func (a *Allocator) untrack(key allocationKey) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live.Delete(key)
}

// LiveAllocations returns the number of buffers and images not yet destroyed.
func (a *Allocator) LiveAllocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live.Count()
}

// ReportLeaks logs every allocation still alive.
func (a *Allocator) ReportLeaks() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live.Iter(func(k allocationKey, v allocationRecord) bool {
		core.LogWarn("leaked allocation %s", v.name)
		return false
	})
}
