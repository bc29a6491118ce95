package plume

import (
	"math"

	"space-emissions/internal/types"
)

// Gaussian plume building blocks after Fioletov et al. (2017),
// https://acp.copernicus.org/articles/17/12597/2017/. A column observed at
// any point is the sum of the flow contributions of all candidate sources
// plus a smooth bias: VCD(x,y) = sum(contribution_i(x,y) * E_i) + bias.
// Distances are in km in a wind-aligned frame, not in degrees.

// WindToUV converts speed and meteorological direction to u/v components.
func WindToUV(speed, direction float64) (u, v float64) {
	rad := direction*2*math.Pi/360 + math.Pi/2
	return speed * math.Cos(rad), -speed * math.Sin(rad)
}

// WindSpeed returns the magnitude of a u/v wind vector.
func WindSpeed(u, v float64) float64 {
	return math.Sqrt(u*u + v*v)
}

// WindDirection returns the meteorological direction of a u/v wind vector
// in degrees.
func WindDirection(u, v float64) float64 {
	deg := 180 / math.Pi
	switch {
	case v >= 0:
		return deg*math.Atan(u/v) + 180
	case u < 0:
		return deg * math.Atan(u/v)
	default:
		return deg*math.Atan(u/v) + 360
	}
}

// RotateAroundSource maps an observation at (lat, lon) into the
// wind-aligned km frame of a source at (refLat, refLon): x across the
// plume, y along it.
func RotateAroundSource(refLat, refLon, lat, lon, windDirection float64) (x, y float64) {
	dtr := math.Pi / 180
	xGlobe := types.EarthRadiusKm * dtr * (lon - refLon) * math.Cos(refLat*dtr)
	yGlobe := types.EarthRadiusKm * dtr * (lat - refLat)
	cos := math.Cos(-windDirection * dtr)
	sin := math.Sin(-windDirection * dtr)
	return xGlobe*cos + yGlobe*sin, -xGlobe*sin + yGlobe*cos
}

// adjustPlumeWidth widens the plume upwind of the source. Fits real
// plumes better than the plain Gaussian width.
func adjustPlumeWidth(y, width float64) float64 {
	if y <= 0 {
		return math.Sqrt(width*width - 1.5*y)
	}
	return width
}

// flowF is cross-wind diffusion at across-plume distance x.
func flowF(x, y, width float64) float64 {
	w := adjustPlumeWidth(y, width)
	return math.Exp(-(x*x)/(2*w*w)) / (w * math.Sqrt(2*math.Pi))
}

// flowG is down-wind advection and decay at along-plume distance y for
// wind speed s and decay rate.
func flowG(y, s, width, decay float64) float64 {
	d := decay / s
	val := (d / 2) * math.Exp((d*(d*width*width+2*y))/2)
	return val * math.Erfc((d*width*width+y)/(math.Sqrt2*width))
}

// FlowContribution combines cross-wind and down-wind terms into the
// factor linking a source's emission rate to the column it adds at the
// rotated position (x, y).
func FlowContribution(x, y, speed, decay, width float64) float64 {
	return flowF(x, y, width) * flowG(y, speed, width, decay)
}
