// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
)

// instant runs one-shot transfer work synchronously on its own pool,
// command buffer and fence.
type instant struct {
	driver  device.Driver
	pool    device.CommandPool
	cb      device.CommandBuffer
	fence   device.Fence
	timeout uint64
}

func newInstant(driver device.Driver, timeout uint64) (*instant, error) {
	pool, err := driver.CreateCommandPool(false)
	if err != nil {
		return nil, fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}
	cbs, err := driver.AllocateCommandBuffers(pool, 1)
	if err != nil {
		driver.DestroyCommandPool(pool)
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}
	fence, err := driver.CreateFence(false)
	if err != nil {
		driver.DestroyCommandPool(pool)
		return nil, fmt.Errorf("vk.CreateFence(): %w", err)
	}
	return &instant{
		driver:  driver,
		pool:    pool,
		cb:      cbs[0],
		fence:   fence,
		timeout: timeout,
	}, nil
}

// run records with record, submits and blocks on the fence. The pool is
// reset afterwards whatever the outcome.
func (in *instant) run(record func(cb device.CommandBuffer) error) error {
	defer in.driver.ResetCommandPool(in.pool)

	if err := in.driver.BeginCommandBuffer(in.cb, true); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}
	if err := record(in.cb); err != nil {
		in.driver.EndCommandBuffer(in.cb)
		return err
	}
	if err := in.driver.EndCommandBuffer(in.cb); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}
	if err := in.driver.QueueSubmit(device.SubmitInfo{CommandBuffer: in.cb, Fence: in.fence}); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}
	if err := in.driver.WaitForFence(in.fence, in.timeout); err != nil {
		return fmt.Errorf("vk.WaitForFences(): %w", err)
	}
	if err := in.driver.ResetFence(in.fence); err != nil {
		return fmt.Errorf("vk.ResetFences(): %w", err)
	}
	return nil
}

func (in *instant) copyBuffer(src, dst device.Buffer, size uint64) error {
	return in.run(func(cb device.CommandBuffer) error {
		in.driver.CmdCopyBuffer(cb, src, dst, size)
		return nil
	})
}

func (in *instant) copyBufferToImage(src device.Buffer, dst device.Image, extent device.Extent, aspect device.ImageAspect) error {
	return in.run(func(cb device.CommandBuffer) error {
		in.driver.CmdCopyBufferToImage(cb, src, dst, extent, aspect)
		return nil
	})
}

// copyImageToBuffer reads src, which is in layout, into dst. The image is
// moved to transfer-src for the copy and back to layout afterwards.
func (in *instant) copyImageToBuffer(src device.Image, layout device.ImageLayout, dst device.Buffer, extent device.Extent, aspect device.ImageAspect) error {
	toSrc, err := copyBarrier(src, layout, device.LayoutTransferSrc, aspect)
	if err != nil {
		return err
	}
	back, err := copyBarrier(src, device.LayoutTransferSrc, layout, aspect)
	if err != nil {
		return err
	}
	return in.run(func(cb device.CommandBuffer) error {
		in.driver.CmdPipelineBarrier(cb, toSrc)
		in.driver.CmdCopyImageToBuffer(cb, src, dst, extent, aspect)
		in.driver.CmdPipelineBarrier(cb, back)
		return nil
	})
}

// copyImage copies src into dst, both in layout, restoring the layout of
// both afterwards.
func (in *instant) copyImage(src, dst device.Image, layout device.ImageLayout, extent device.Extent, aspect device.ImageAspect) error {
	var barriers [4]device.ImageBarrier
	steps := []struct {
		img      device.Image
		from, to device.ImageLayout
	}{
		{src, layout, device.LayoutTransferSrc},
		{dst, layout, device.LayoutTransferDst},
		{src, device.LayoutTransferSrc, layout},
		{dst, device.LayoutTransferDst, layout},
	}
	for i, st := range steps {
		b, err := copyBarrier(st.img, st.from, st.to, aspect)
		if err != nil {
			return err
		}
		barriers[i] = b
	}
	return in.run(func(cb device.CommandBuffer) error {
		in.driver.CmdPipelineBarrier(cb, barriers[0])
		in.driver.CmdPipelineBarrier(cb, barriers[1])
		in.driver.CmdCopyImage(cb, src, dst, extent, aspect)
		in.driver.CmdPipelineBarrier(cb, barriers[2])
		in.driver.CmdPipelineBarrier(cb, barriers[3])
		return nil
	})
}

func (in *instant) transition(img device.Image, from, to device.ImageLayout, aspect device.ImageAspect) error {
	barrier, err := transitionBarrier(img, from, to, aspect)
	if err != nil {
		return err
	}
	return in.run(func(cb device.CommandBuffer) error {
		in.driver.CmdPipelineBarrier(cb, barrier)
		return nil
	})
}

// uploadImage moves img to transfer-dst, copies src into it and leaves it
// shader-read-only, in one submission.
func (in *instant) uploadImage(src device.Buffer, img device.Image, extent device.Extent) error {
	toDst, err := transitionBarrier(img, device.LayoutUndefined, device.LayoutTransferDst, device.AspectColor)
	if err != nil {
		return err
	}
	toRead, err := transitionBarrier(img, device.LayoutTransferDst, device.LayoutShaderReadOnly, device.AspectColor)
	if err != nil {
		return err
	}
	return in.run(func(cb device.CommandBuffer) error {
		in.driver.CmdPipelineBarrier(cb, toDst)
		in.driver.CmdCopyBufferToImage(cb, src, img, extent, device.AspectColor)
		in.driver.CmdPipelineBarrier(cb, toRead)
		return nil
	})
}

func (in *instant) release() {
	in.driver.DestroyFence(in.fence)
	in.driver.FreeCommandBuffers(in.pool, []device.CommandBuffer{in.cb})
	in.driver.DestroyCommandPool(in.pool)
}

type layoutPair struct {
	from, to device.ImageLayout
}

type transitionMasks struct {
	srcAccess, dstAccess device.AccessFlags
	srcStage, dstStage   device.PipelineStage
}

// transitions is the complete set of supported layout changes.
var transitions = map[layoutPair]transitionMasks{
	{device.LayoutUndefined, device.LayoutTransferDst}: {
		dstAccess: device.AccessTransferWrite,
		srcStage:  device.StageTopOfPipe,
		dstStage:  device.StageTransfer,
	},
	{device.LayoutTransferDst, device.LayoutShaderReadOnly}: {
		srcAccess: device.AccessTransferWrite,
		dstAccess: device.AccessShaderRead,
		srcStage:  device.StageTransfer,
		dstStage:  device.StageFragmentShader,
	},
	{device.LayoutUndefined, device.LayoutDepthStencilAttachment}: {
		dstAccess: device.AccessDepthStencilAttachmentRead | device.AccessDepthStencilAttachmentWrite,
		srcStage:  device.StageTopOfPipe,
		dstStage:  device.StageEarlyFragmentTests,
	},
}

// copyTransitions are the layout changes copies make around themselves
// and undo once done. transition never uses them.
var copyTransitions = map[layoutPair]transitionMasks{
	{device.LayoutShaderReadOnly, device.LayoutTransferSrc}: {
		srcAccess: device.AccessShaderRead,
		dstAccess: device.AccessTransferRead,
		srcStage:  device.StageFragmentShader,
		dstStage:  device.StageTransfer,
	},
	{device.LayoutTransferSrc, device.LayoutShaderReadOnly}: {
		srcAccess: device.AccessTransferRead,
		dstAccess: device.AccessShaderRead,
		srcStage:  device.StageTransfer,
		dstStage:  device.StageFragmentShader,
	},
	{device.LayoutShaderReadOnly, device.LayoutTransferDst}: {
		srcAccess: device.AccessShaderRead,
		dstAccess: device.AccessTransferWrite,
		srcStage:  device.StageFragmentShader,
		dstStage:  device.StageTransfer,
	},
	{device.LayoutPresentSrc, device.LayoutTransferSrc}: {
		srcAccess: device.AccessColorAttachmentWrite,
		dstAccess: device.AccessTransferRead,
		srcStage:  device.StageColorAttachmentOutput,
		dstStage:  device.StageTransfer,
	},
	{device.LayoutTransferSrc, device.LayoutPresentSrc}: {
		srcAccess: device.AccessTransferRead,
		dstAccess: device.AccessMemoryRead,
		srcStage:  device.StageTransfer,
		dstStage:  device.StageBottomOfPipe,
	},
}

// transitionBarrier builds the barrier for a supported layout change.
func transitionBarrier(img device.Image, from, to device.ImageLayout, aspect device.ImageAspect) (device.ImageBarrier, error) {
	m, ok := transitions[layoutPair{from, to}]
	if !ok {
		return device.ImageBarrier{}, fmt.Errorf("%w: %s to %s", core.ErrUnsupportedTransition, from, to)
	}
	return newBarrier(img, from, to, aspect, m), nil
}

// copyBarrier builds the barrier around a copy, from either table.
func copyBarrier(img device.Image, from, to device.ImageLayout, aspect device.ImageAspect) (device.ImageBarrier, error) {
	if m, ok := copyTransitions[layoutPair{from, to}]; ok {
		return newBarrier(img, from, to, aspect, m), nil
	}
	return transitionBarrier(img, from, to, aspect)
}

func newBarrier(img device.Image, from, to device.ImageLayout, aspect device.ImageAspect, m transitionMasks) device.ImageBarrier {
	return device.ImageBarrier{
		Image:     img,
		Old:       from,
		New:       to,
		Aspect:    aspect,
		SrcAccess: m.srcAccess,
		DstAccess: m.dstAccess,
		SrcStage:  m.srcStage,
		DstStage:  m.dstStage,
		MipLevels: 1,
	}
}
