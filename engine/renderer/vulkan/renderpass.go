package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

const maxColorAttachments = 4

/**
 * @brief Identifies a render pass. Attachments keep the layout they were
 * transitioned to by an explicit barrier, so a pass never changes layouts;
 * the only variation is whether it loads or clears.
 */
type renderpassKey struct {
	colors     [maxColorAttachments]vk.Format
	colorCount int
	depth      vk.Format
	clear      bool
}

type framebufferKey struct {
	pass   renderpassKey
	views  [maxColorAttachments + 1]vk.ImageView
	width  uint32
	height uint32
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	key    renderpassKey
}

type VulkanFramebuffer struct {
	Handle vk.Framebuffer
	views  []vk.ImageView
}

// renderpassCache creates render passes and framebuffers on first use.
type renderpassCache struct {
	context      *VulkanContext
	passes       map[renderpassKey]*VulkanRenderpass
	framebuffers map[framebufferKey]*VulkanFramebuffer
}

func newRenderpassCache(context *VulkanContext) *renderpassCache {
	return &renderpassCache{
		context:      context,
		passes:       make(map[renderpassKey]*VulkanRenderpass),
		framebuffers: make(map[framebufferKey]*VulkanFramebuffer),
	}
}

func newRenderpassKey(colors []vk.Format, depth vk.Format, clear bool) (renderpassKey, error) {
	key := renderpassKey{depth: depth, clear: clear}
	if len(colors) > maxColorAttachments {
		return key, fmt.Errorf("%d render targets, at most %d are supported", len(colors), maxColorAttachments)
	}
	copy(key.colors[:], colors)
	key.colorCount = len(colors)
	return key, nil
}

func (rc *renderpassCache) renderpass(key renderpassKey) (*VulkanRenderpass, error) {
	var out *VulkanRenderpass
	err := rc.context.locks.SafeCall(RenderpassManagement, func() error {
		if rp, ok := rc.passes[key]; ok {
			out = rp
			return nil
		}
		rp, err := RenderpassCreate(rc.context, key)
		if err != nil {
			return err
		}
		rc.passes[key] = rp
		out = rp
		return nil
	})
	return out, err
}

func RenderpassCreate(context *VulkanContext, key renderpassKey) (*VulkanRenderpass, error) {
	loadOp := vk.AttachmentLoadOpLoad
	if key.clear {
		loadOp = vk.AttachmentLoadOpClear
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}
	attachments := make([]vk.AttachmentDescription, 0, key.colorCount+1)
	colorRefs := make([]vk.AttachmentReference, 0, key.colorCount)

	// Color attachments
	for i := 0; i < key.colorCount; i++ {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         key.colors[i],
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	subpass.ColorAttachmentCount = uint32(len(colorRefs))
	subpass.PColorAttachments = colorRefs

	// Depth attachment, if there is one
	if key.depth != vk.FormatUndefined {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         key.depth,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  loadOp,
			StencilStoreOp: vk.AttachmentStoreOpStore,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	var handle vk.RenderPass
	if err := vkCheck("vkCreateRenderPass", vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	core.LogDebug("created render pass: %d color, depth %v, clear %t", key.colorCount, key.depth != vk.FormatUndefined, key.clear)
	return &VulkanRenderpass{Handle: handle, key: key}, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// framebuffer returns a framebuffer for views. It is created against the
// loading variant of the pass, which is compatible with the clearing one.
func (rc *renderpassCache) framebuffer(pass renderpassKey, views []vk.ImageView, width, height uint32) (*VulkanFramebuffer, error) {
	fk := framebufferKey{width: width, height: height, pass: pass}
	fk.pass.clear = false
	copy(fk.views[:], views)

	compatible, err := rc.renderpass(fk.pass)
	if err != nil {
		return nil, err
	}
	var out *VulkanFramebuffer
	err = rc.context.locks.SafeCall(RenderpassManagement, func() error {
		if fb, ok := rc.framebuffers[fk]; ok {
			out = fb
			return nil
		}
		fb, err := FramebufferCreate(rc.context, compatible, width, height, views)
		if err != nil {
			return err
		}
		rc.framebuffers[fk] = fb
		out = fb
		return nil
	})
	return out, err
}

// forget destroys every framebuffer that references one of t's views.
func (rc *renderpassCache) forget(t *Texture) {
	_ = rc.context.locks.SafeCall(RenderpassManagement, func() error {
		for key, fb := range rc.framebuffers {
			for _, v := range fb.views {
				if v == t.image.View {
					fb.Destroy(rc.context)
					delete(rc.framebuffers, key)
					break
				}
			}
		}
		return nil
	})
}

func (rc *renderpassCache) destroy() {
	for key, fb := range rc.framebuffers {
		fb.Destroy(rc.context)
		delete(rc.framebuffers, key)
	}
	for key, rp := range rc.passes {
		rp.RenderpassDestroy(rc.context)
		delete(rc.passes, key)
	}
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		views: append([]vk.ImageView(nil), attachments...),
	}
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.views)),
		PAttachments:    outFramebuffer.views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var pFramebuffer vk.Framebuffer
	if err := vkCheck("vkCreateFramebuffer", vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &pFramebuffer)); err != nil {
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
	vfb.Handle = nil
	vfb.views = nil
}
