package renderer

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ImmediateSubmitter runs one off command recordings to completion on a
// dedicated command buffer and fence. Calls are serialized; the record
// callback must not call SubmitAndWait on the same submitter.
type ImmediateSubmitter struct {
	mu      sync.Mutex
	device  RendererBackend
	pool    metadata.CommandPoolHandle
	cmd     metadata.CommandBufferHandle
	fence   metadata.FenceHandle
	timeout time.Duration
}

func NewImmediateSubmitter(device RendererBackend, timeout time.Duration) (*ImmediateSubmitter, error) {
	s := &ImmediateSubmitter{device: device, timeout: timeout}
	var err error
	if s.pool, err = device.CreateCommandPool(); err != nil {
		return nil, errors.Wrap(err, "creating immediate command pool")
	}
	if s.cmd, err = device.AllocateCommandBuffer(s.pool); err != nil {
		return nil, errors.Wrap(err, "allocating immediate command buffer")
	}
	if s.fence, err = device.CreateFence(true); err != nil {
		return nil, errors.Wrap(err, "creating immediate fence")
	}
	return s, nil
}

// SubmitAndWait records through fn, submits without semaphores and blocks
// until the GPU finished the work.
func (s *ImmediateSubmitter) SubmitAndWait(fn func(cmd CommandRecorder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.device.ResetFence(s.fence); err != nil {
		return errors.Wrap(err, "resetting immediate fence")
	}
	if err := s.device.ResetCommandBuffer(s.cmd); err != nil {
		return errors.Wrap(err, "resetting immediate command buffer")
	}
	recorder, err := s.device.BeginCommandBuffer(s.cmd)
	if err != nil {
		return errors.Wrap(err, "beginning immediate command buffer")
	}
	fn(recorder)
	if err := s.device.EndCommandBuffer(s.cmd); err != nil {
		return errors.Wrap(err, "ending immediate command buffer")
	}

	if err := s.device.Submit(metadata.SubmitInfo{
		CommandBuffer: s.cmd,
		Fence:         s.fence,
	}); err != nil {
		return errors.Wrap(err, "submitting immediate commands")
	}
	if err := s.device.WaitForFence(s.fence, s.timeout); err != nil {
		return errors.Wrap(err, "waiting on immediate submit")
	}
	return nil
}

func (s *ImmediateSubmitter) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device.DestroyCommandPool(s.pool)
	s.device.DestroyFence(s.fence)
}
