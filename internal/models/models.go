package models

// NumJoints is the number of hand joints per sample.
// Order: W, T0-T3, I0-I3, M0-M3, R0-R3, L0-L3.
const NumJoints = 21

// ImageSize is the side length of the square network input.
const ImageSize = 256

// Keypoints2D holds u,v pixel coordinates for every joint
type Keypoints2D [NumJoints][2]float32

// Keypoints3D holds x,y,z coordinates relative to the middle MCP joint,
// normalized so that the wrist to middle MCP bone has length 1
type Keypoints3D [NumJoints][3]float32

// Sample is one annotated row of the dataset
type Sample struct {
	Index       int
	ImagePath   string
	Keypoints2D Keypoints2D
	Keypoints3D Keypoints3D
}

// Example is a Sample after the pipeline has decoded and rasterized it
type Example struct {
	Sample Sample

	// Image is ImageSize*ImageSize*3 values in [-0.5, 0.5], row-major, RGB innermost
	Image []float32

	// Heatmap is ImageSize*ImageSize*NumJoints values, row-major, joint innermost
	Heatmap []float32
	Height  int
	Width   int
}

// Batch is a fixed-size group of examples
type Batch []Example

// RenderResult represents one diagnostic figure written to disk
type RenderResult struct {
	Index       int         `json:"index"`
	ImagePath   string      `json:"image_path"`
	OutputPath  string      `json:"output_path"`
	Keypoints3D Keypoints3D `json:"keypoints_3d"`
}
