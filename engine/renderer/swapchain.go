package renderer

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type SwapchainDevice interface {
	PresentDevice
	MemoryDevice
}

// SwapchainManager owns the swapchain, its images and their views. The whole
// set is replaced on resize.
type SwapchainManager struct {
	device        SwapchainDevice
	swapchain     metadata.SwapchainHandle
	Format        metadata.Format
	Extent        metadata.Extent2D
	Images        []metadata.ImageHandle
	Views         []metadata.ImageViewHandle
	pendingResize bool
}

func NewSwapchainManager(device SwapchainDevice) *SwapchainManager {
	return &SwapchainManager{device: device}
}

func (s *SwapchainManager) Create(width, height uint32) error {
	desc, err := s.device.CreateSwapchain(metadata.SwapchainCreateInfo{
		Width:       width,
		Height:      height,
		Format:      metadata.FormatB8G8R8A8Unorm,
		ColorSpace:  metadata.ColorSpaceSrgbNonlinear,
		PresentMode: metadata.PresentModeFifo,
		Usage:       metadata.ImageUsageColorAttachment | metadata.ImageUsageTransferDst,
	})
	if err != nil {
		return errors.Wrapf(err, "creating swapchain %dx%d", width, height)
	}

	views := make([]metadata.ImageViewHandle, 0, len(desc.Images))
	for _, image := range desc.Images {
		view, err := s.device.CreateImageView(image, desc.Format, 1)
		if err != nil {
			for _, v := range views {
				s.device.DestroyImageView(v)
			}
			s.device.DestroySwapchain(desc.Swapchain)
			return errors.Wrap(err, "creating swapchain image view")
		}
		views = append(views, view)
	}

	s.swapchain = desc.Swapchain
	s.Format = desc.Format
	s.Extent = desc.Extent
	s.Images = desc.Images
	s.Views = views
	core.LogDebug("swapchain created: %dx%d, %d images", s.Extent.Width, s.Extent.Height, len(s.Images))
	return nil
}

// Destroy releases the views and the swapchain. The surface is untouched.
func (s *SwapchainManager) Destroy() {
	if s.swapchain == metadata.InvalidHandle {
		return
	}
	for _, v := range s.Views {
		s.device.DestroyImageView(v)
	}
	s.device.DestroySwapchain(s.swapchain)
	s.swapchain = metadata.InvalidHandle
	s.Images = nil
	s.Views = nil
}

// Acquire returns the index of the next presentable image. An out of date
// swapchain flags a pending resize and returns core.ErrSurfaceOutOfDate.
func (s *SwapchainManager) Acquire(timeout time.Duration, signal metadata.SemaphoreHandle) (uint32, error) {
	index, err := s.device.AcquireNextImage(s.swapchain, timeout, signal)
	if err != nil {
		if core.IsRecoverable(err) {
			s.pendingResize = true
		}
		return 0, errors.Wrap(err, "acquiring swapchain image")
	}
	return index, nil
}

func (s *SwapchainManager) Present(index uint32, wait metadata.SemaphoreHandle) error {
	if err := s.device.Present(s.swapchain, index, wait); err != nil {
		if core.IsRecoverable(err) {
			s.pendingResize = true
		}
		return errors.Wrap(err, "presenting swapchain image")
	}
	return nil
}

// Resize waits for the device, then rebuilds the swapchain at the new size.
func (s *SwapchainManager) Resize(width, height uint32) error {
	if err := s.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for idle before resize")
	}
	s.Destroy()
	if err := s.Create(width, height); err != nil {
		return err
	}
	s.pendingResize = false
	return nil
}

func (s *SwapchainManager) RequestResize() {
	s.pendingResize = true
}

func (s *SwapchainManager) PendingResize() bool {
	return s.pendingResize
}
