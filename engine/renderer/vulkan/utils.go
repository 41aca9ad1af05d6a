package vulkan

import (
	"encoding/binary"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

func VulkanResultString(result vk.Result) string {
	switch result {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.Incomplete:
		return "VK_INCOMPLETE"
	case vk.Suboptimal:
		return "VK_SUBOPTIMAL_KHR"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case vk.ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorMemoryMapFailed:
		return "VK_ERROR_MEMORY_MAP_FAILED"
	case vk.ErrorLayerNotPresent:
		return "VK_ERROR_LAYER_NOT_PRESENT"
	case vk.ErrorExtensionNotPresent:
		return "VK_ERROR_EXTENSION_NOT_PRESENT"
	case vk.ErrorFeatureNotPresent:
		return "VK_ERROR_FEATURE_NOT_PRESENT"
	case vk.ErrorIncompatibleDriver:
		return "VK_ERROR_INCOMPATIBLE_DRIVER"
	case vk.ErrorTooManyObjects:
		return "VK_ERROR_TOO_MANY_OBJECTS"
	case vk.ErrorFormatNotSupported:
		return "VK_ERROR_FORMAT_NOT_SUPPORTED"
	case vk.ErrorFragmentedPool:
		return "VK_ERROR_FRAGMENTED_POOL"
	case vk.ErrorSurfaceLost:
		return "VK_ERROR_SURFACE_LOST_KHR"
	case vk.ErrorNativeWindowInUse:
		return "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR"
	case vk.ErrorOutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case vk.ErrorOutOfPoolMemory:
		return "VK_ERROR_OUT_OF_POOL_MEMORY"
	}
	return "VK_ERROR_UNKNOWN"
}

// vkCheck turns a failed result into a DeviceError naming op.
func vkCheck(op string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	var cause error
	switch res {
	case vk.ErrorDeviceLost:
		cause = core.ErrDeviceLost
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		cause = core.ErrOutOfMemory
	case vk.ErrorOutOfDate, vk.Suboptimal:
		cause = core.ErrSwapchainBooting
	}
	err := core.NewDeviceError(op, int64(res), VulkanResultString(res), cause)
	core.LogError(err.Error())
	return err
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// spirvWords reinterprets a SPIR-V blob as the word slice vkCreateShaderModule takes.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

func vulkanFormat(f gpu.Format, depthFormat vk.Format) vk.Format {
	switch f {
	case gpu.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gpu.FormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case gpu.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case gpu.FormatR16Unorm:
		return vk.FormatR16Unorm
	case gpu.FormatR32Float:
		return vk.FormatR32Sfloat
	case gpu.FormatD24UnormS8Uint, gpu.FormatD32FloatS8Uint:
		// Stencil-capable depth formats are interchangeable; the device
		// picks whichever one the GPU supports.
		return depthFormat
	}
	return vk.FormatUndefined
}

func engineFormat(f vk.Format) gpu.Format {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return gpu.FormatRGBA8Unorm
	case vk.FormatB8g8r8a8Unorm:
		return gpu.FormatBGRA8Unorm
	}
	return gpu.FormatUnknown
}

func vertexFormat(f gpu.VertexFormat) vk.Format {
	switch f {
	case gpu.VertexFloat2:
		return vk.FormatR32g32Sfloat
	case gpu.VertexFloat4:
		return vk.FormatR32g32b32a32Sfloat
	}
	return vk.FormatR32g32b32Sfloat
}

// imageLayout is the layout a texture in state s is kept in.
func imageLayout(s gpu.ResourceState, depth bool) vk.ImageLayout {
	switch s {
	case gpu.StateGenericRead:
		if depth {
			return vk.ImageLayoutDepthStencilReadOnlyOptimal
		}
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gpu.StateRenderTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case gpu.StateDepthWrite:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case gpu.StatePresent:
		return vk.ImageLayoutPresentSrc
	case gpu.StateCopyDest:
		return vk.ImageLayoutTransferDstOptimal
	}
	return vk.ImageLayoutGeneral
}

func accessMask(s gpu.ResourceState) vk.AccessFlags {
	switch s {
	case gpu.StateGenericRead:
		return vk.AccessFlags(vk.AccessShaderReadBit)
	case gpu.StateRenderTarget:
		return vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case gpu.StateDepthWrite:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	case gpu.StateCopyDest:
		return vk.AccessFlags(vk.AccessTransferWriteBit)
	case gpu.StateCommon:
		return vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit)
	}
	return 0
}

func compareOp(f gpu.ComparisonFunc) vk.CompareOp {
	switch f {
	case gpu.CompareNever:
		return vk.CompareOpNever
	case gpu.CompareLess:
		return vk.CompareOpLess
	case gpu.CompareEqual:
		return vk.CompareOpEqual
	case gpu.CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case gpu.CompareGreater:
		return vk.CompareOpGreater
	case gpu.CompareNotEqual:
		return vk.CompareOpNotEqual
	case gpu.CompareGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	}
	return vk.CompareOpAlways
}

func stencilOp(op gpu.StencilOp) vk.StencilOp {
	switch op {
	case gpu.StencilZero:
		return vk.StencilOpZero
	case gpu.StencilReplace:
		return vk.StencilOpReplace
	case gpu.StencilIncrSat:
		return vk.StencilOpIncrementAndClamp
	case gpu.StencilDecrSat:
		return vk.StencilOpDecrementAndClamp
	case gpu.StencilInvert:
		return vk.StencilOpInvert
	case gpu.StencilIncr:
		return vk.StencilOpIncrementAndWrap
	case gpu.StencilDecr:
		return vk.StencilOpDecrementAndWrap
	}
	return vk.StencilOpKeep
}

func blendFactor(b gpu.Blend) vk.BlendFactor {
	switch b {
	case gpu.BlendZero:
		return vk.BlendFactorZero
	case gpu.BlendSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case gpu.BlendInvSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	}
	return vk.BlendFactorOne
}

func blendOp(op gpu.BlendOp) vk.BlendOp {
	if op == gpu.BlendOpSubtract {
		return vk.BlendOpSubtract
	}
	return vk.BlendOpAdd
}

func colorWriteMask(m gpu.ColorWrite) vk.ColorComponentFlags {
	var out vk.ColorComponentFlags
	if m&gpu.ColorWriteRed != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentRBit)
	}
	if m&gpu.ColorWriteGreen != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentGBit)
	}
	if m&gpu.ColorWriteBlue != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentBBit)
	}
	if m&gpu.ColorWriteAlpha != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentABit)
	}
	return out
}

func samplerFilter(f gpu.Filter) (vk.Filter, vk.SamplerMipmapMode) {
	if f == gpu.FilterPoint {
		return vk.FilterNearest, vk.SamplerMipmapModeNearest
	}
	return vk.FilterLinear, vk.SamplerMipmapModeLinear
}

func addressMode(a gpu.AddressMode) vk.SamplerAddressMode {
	switch a {
	case gpu.AddressClamp:
		return vk.SamplerAddressModeClampToEdge
	case gpu.AddressBorder:
		return vk.SamplerAddressModeClampToBorder
	}
	return vk.SamplerAddressModeRepeat
}

func borderColor(b gpu.BorderColor) vk.BorderColor {
	switch b {
	case gpu.BorderOpaqueWhite:
		return vk.BorderColorFloatOpaqueWhite
	case gpu.BorderTransparentBlack:
		return vk.BorderColorFloatTransparentBlack
	}
	return vk.BorderColorFloatOpaqueBlack
}

func MathClamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
