package embeddings

import (
	"math"
	"sync"

	"github.com/bdougie/handpose/internal/models"
)

// Dim is the length of a pose vector
const Dim = models.NumJoints * 3

// middleMCP is the base joint of the middle finger
const middleMCP = 9

// PoseVector flattens a 3D hand pose into a vector that is invariant to
// translation and scale: the wrist moves to the origin and the wrist to
// middle MCP bone gets unit length. A zero-length bone leaves the scale alone.
func PoseVector(kp models.Keypoints3D) []float32 {
	wrist := kp[0]
	var sq float64
	for k := 0; k < 3; k++ {
		d := float64(kp[middleMCP][k] - wrist[k])
		sq += d * d
	}
	scale := 1.0
	if l := math.Sqrt(sq); l > 0 {
		scale = 1 / l
	}

	out := make([]float32, 0, Dim)
	for _, j := range kp {
		for k := 0; k < 3; k++ {
			out = append(out, float32(float64(j[k]-wrist[k])*scale))
		}
	}
	return out
}

// Service caches pose vectors by image path
type Service struct {
	cache sync.Map
}

// NewService creates an empty cache
func NewService() *Service {
	return &Service{}
}

// Get returns the pose vector for a sample, computing it once per image path
func (s *Service) Get(sample models.Sample) []float32 {
	if cached, ok := s.cache.Load(sample.ImagePath); ok {
		if vec, valid := cached.([]float32); valid {
			return vec
		}
	}
	vec := PoseVector(sample.Keypoints3D)
	s.cache.Store(sample.ImagePath, vec)
	return vec
}
