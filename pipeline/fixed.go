package pipeline

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

// The triangle is generated in the vertex stage, so no bindings or attributes.
func vertexInputState() *core1_0.PipelineVertexInputStateCreateInfo {
	return &core1_0.PipelineVertexInputStateCreateInfo{}
}

func inputAssemblyState() *core1_0.PipelineInputAssemblyStateCreateInfo {
	return &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}
}

// viewportState only declares counts. The real viewport and scissor are set while
// recording each frame, so the pipeline survives a resize.
func viewportState() *core1_0.PipelineViewportStateCreateInfo {
	return &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{Width: 1, Height: 1, MinDepth: 0, MaxDepth: 1},
		},
		Scissors: []core1_0.Rect2D{
			{Extent: core1_0.Extent2D{Width: 1, Height: 1}},
		},
	}
}

func dynamicState() *core1_0.PipelineDynamicStateCreateInfo {
	return &core1_0.PipelineDynamicStateCreateInfo{
		DynamicStates: []core1_0.DynamicState{
			core1_0.DynamicStateViewport,
			core1_0.DynamicStateScissor,
		},
	}
}

func rasterizationState() *core1_0.PipelineRasterizationStateCreateInfo {
	return &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}
}

func multisampleState() *core1_0.PipelineMultisampleStateCreateInfo {
	return &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}
}

func colorBlendState() *core1_0.PipelineColorBlendStateCreateInfo {
	return &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}
}

// GraphicsPipelineCreateInfo combines the two shader stages with the fixed-function
// state of the triangle pipeline.
func GraphicsPipelineCreateInfo(vertex, fragment core1_0.ShaderModule, layout core1_0.PipelineLayout, renderPass core1_0.RenderPass) core1_0.GraphicsPipelineCreateInfo {
	return core1_0.GraphicsPipelineCreateInfo{
		Stages: []core1_0.PipelineShaderStageCreateInfo{
			{
				Stage:  core1_0.StageVertex,
				Module: vertex,
				Name:   "main",
			},
			{
				Stage:  core1_0.StageFragment,
				Module: fragment,
				Name:   "main",
			},
		},
		VertexInputState:   vertexInputState(),
		InputAssemblyState: inputAssemblyState(),
		ViewportState:      viewportState(),
		RasterizationState: rasterizationState(),
		MultisampleState:   multisampleState(),
		ColorBlendState:    colorBlendState(),
		DynamicState:       dynamicState(),
		Layout:             layout,
		RenderPass:         renderPass,
		Subpass:            0,
		BasePipelineIndex:  -1,
	}
}
