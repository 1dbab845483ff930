package plot

import "image/color"

var viridisStops = [...][3]float64{
	{0.267004, 0.004874, 0.329415},
	{0.282623, 0.140926, 0.457517},
	{0.253935, 0.265254, 0.529983},
	{0.206756, 0.371758, 0.553117},
	{0.163625, 0.471133, 0.558148},
	{0.127568, 0.566949, 0.550556},
	{0.134692, 0.658636, 0.517649},
	{0.266941, 0.748751, 0.440573},
	{0.477504, 0.821444, 0.318195},
	{0.741388, 0.873449, 0.149561},
	{0.993248, 0.906157, 0.143936},
}

// Viridis maps t in [0,1] onto the viridis colour map by linear
// interpolation between eleven stops. t is clamped.
func Viridis(t float64) color.RGBA {
	t = max(0, min(t, 1))
	pos := t * float64(len(viridisStops)-1)
	i := int(pos)
	if i >= len(viridisStops)-1 {
		i = len(viridisStops) - 2
	}
	f := pos - float64(i)
	a, b := viridisStops[i], viridisStops[i+1]
	ch := func(k int) uint8 {
		return uint8((a[k]+(b[k]-a[k])*f)*255 + 0.5)
	}
	return color.RGBA{R: ch(0), G: ch(1), B: ch(2), A: 255}
}
