package pipeline

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func TestRenderPassCreateInfo(t *testing.T) {
	info := RenderPassCreateInfo(core1_0.FormatB8G8R8A8SRGB)

	require.Len(t, info.Attachments, 1)
	attachment := info.Attachments[0]
	assert.Equal(t, core1_0.FormatB8G8R8A8SRGB, attachment.Format)
	assert.Equal(t, core1_0.AttachmentLoadOpClear, attachment.LoadOp)
	assert.Equal(t, core1_0.AttachmentStoreOpStore, attachment.StoreOp)
	assert.Equal(t, core1_0.ImageLayoutUndefined, attachment.InitialLayout)
	assert.Equal(t, khr_swapchain.ImageLayoutPresentSrc, attachment.FinalLayout)

	require.Len(t, info.Subpasses, 1)
	require.Len(t, info.Subpasses[0].ColorAttachments, 1)
	assert.Equal(t, core1_0.ImageLayoutColorAttachmentOptimal, info.Subpasses[0].ColorAttachments[0].Layout)

	require.Len(t, info.SubpassDependencies, 1)
	dependency := info.SubpassDependencies[0]
	assert.EqualValues(t, core1_0.SubpassExternal, dependency.SrcSubpass)
	assert.EqualValues(t, 0, dependency.DstSubpass)
	assert.Equal(t, core1_0.PipelineStageColorAttachmentOutput, dependency.SrcStageMask)
	assert.Equal(t, core1_0.PipelineStageColorAttachmentOutput, dependency.DstStageMask)
	assert.Equal(t, core1_0.AccessColorAttachmentWrite, dependency.DstAccessMask)
}

func TestGraphicsPipelineCreateInfo(t *testing.T) {
	info := GraphicsPipelineCreateInfo(core1_0.ShaderModule{}, core1_0.ShaderModule{}, core1_0.PipelineLayout{}, core1_0.RenderPass{})

	require.Len(t, info.Stages, 2)
	assert.Equal(t, core1_0.StageVertex, info.Stages[0].Stage)
	assert.Equal(t, core1_0.StageFragment, info.Stages[1].Stage)

	assert.Empty(t, info.VertexInputState.VertexBindingDescriptions)
	assert.Empty(t, info.VertexInputState.VertexAttributeDescriptions)
	assert.Equal(t, core1_0.PrimitiveTopologyTriangleList, info.InputAssemblyState.Topology)
	assert.Equal(t, []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor}, info.DynamicState.DynamicStates)
	assert.Len(t, info.ViewportState.Viewports, 1)
	assert.Len(t, info.ViewportState.Scissors, 1)
	assert.Equal(t, core1_0.CullModeBack, info.RasterizationState.CullMode)
	assert.Equal(t, core1_0.Samples1, info.MultisampleState.RasterizationSamples)

	require.Len(t, info.ColorBlendState.Attachments, 1)
	assert.False(t, info.ColorBlendState.Attachments[0].BlendEnabled)
	assert.EqualValues(t, -1, info.BasePipelineIndex)
}

var testIdentity = CacheIdentity{
	VendorID: 0x10de,
	DeviceID: 0x2484,
	UUID:     uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
}

func cacheBlob(t *testing.T, header cacheHeader, payload int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, header))
	buf.Write(make([]byte, payload))
	return buf.Bytes()
}

func validHeader() cacheHeader {
	return cacheHeader{
		Length:   cacheHeaderSize,
		Version:  cacheHeaderVersionOne,
		VendorID: testIdentity.VendorID,
		DeviceID: testIdentity.DeviceID,
		UUID:     testIdentity.UUID,
	}
}

func TestValidateCacheHeader(t *testing.T) {
	require.NoError(t, ValidateCacheHeader(cacheBlob(t, validHeader(), 64), testIdentity))

	tests := map[string]func(h *cacheHeader){
		"length":  func(h *cacheHeader) { h.Length = 0 },
		"version": func(h *cacheHeader) { h.Version = 2 },
		"vendor":  func(h *cacheHeader) { h.VendorID = 0x1002 },
		"device":  func(h *cacheHeader) { h.DeviceID++ },
		"uuid":    func(h *cacheHeader) { h.UUID = uuid.Nil },
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			header := validHeader()
			corrupt(&header)

			err := ValidateCacheHeader(cacheBlob(t, header, 64), testIdentity)
			assert.True(t, errors.Is(err, ErrCacheMismatch), "%v", err)
		})
	}
}

func TestValidateCacheHeaderTruncated(t *testing.T) {
	blob := cacheBlob(t, validHeader(), 0)
	err := ValidateCacheHeader(blob[:cacheHeaderSize-1], testIdentity)
	assert.True(t, errors.Is(err, ErrCacheMismatch))
}

func TestReadCacheFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	assert.Nil(t, readCacheFile(filepath.Join(dir, "missing.bin"), testIdentity, logger))

	good := filepath.Join(dir, "good.bin")
	blob := cacheBlob(t, validHeader(), 32)
	require.NoError(t, os.WriteFile(good, blob, 0666))
	assert.Equal(t, blob, readCacheFile(good, testIdentity, logger))

	stale := filepath.Join(dir, "stale.bin")
	header := validHeader()
	header.DeviceID = 1
	require.NoError(t, os.WriteFile(stale, cacheBlob(t, header, 32), 0666))
	assert.Nil(t, readCacheFile(stale, testIdentity, logger))
	_, err := os.Stat(stale)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNilCacheHandle(t *testing.T) {
	var cache *Cache
	assert.Nil(t, cache.Handle())
	assert.NoError(t, cache.Save())
	cache.Destroy()
}
