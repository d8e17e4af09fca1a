package bvh

import "math"

// IncludedFrames returns the source frame indices kept when resampling total frames
// from sourceRate to targetRate. Nearest lower frame, no blending.
func IncludedFrames(total int, sourceRate, targetRate float64) []int {
	if total <= 0 {
		return nil
	}
	skip := 1.0
	if sourceRate > 0 && targetRate > 0 {
		skip = sourceRate / targetRate
	}
	n := int(math.Ceil(float64(total) / skip))
	frames := make([]int, 0, n)
	for i := 0; i < n; i++ {
		f := int(math.Floor(float64(i)*skip + 1e-9))
		if f >= total {
			break
		}
		if len(frames) > 0 && frames[len(frames)-1] >= f {
			continue
		}
		frames = append(frames, f)
	}
	return frames
}
