package service

import (
	"fmt"
	"math"

	"peertrack/internal/domain/track"
)

// formatDistance renders meters for the tracking screen: "850 m" under a
// kilometer, "1.30 km" above. Unknown distance renders as a placeholder.
func formatDistance(meters float64) string {
	if math.IsInf(meters, 0) || math.IsNaN(meters) || meters < 0 {
		return "--"
	}
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// fallbackETAMinutes converts a straight-line distance into a minute
// estimate at the assumed average speed, floored at one minute.
func fallbackETAMinutes(distanceMeters, speedKMH float64) int {
	if speedKMH <= 0 {
		speedKMH = 55
	}
	minutes := int(math.Round(distanceMeters / 1000 / speedKMH * 60))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// etaLabel renders the travel-time estimate. A routed result gives a
// confident label; without one the straight-line guess is shown tentatively
// so the viewer can tell it is still calculating.
func etaLabel(metrics *track.RouteMetrics, straightLineMeters, fallbackSpeedKMH float64) string {
	if metrics != nil {
		minutes := int(math.Round(metrics.DurationSeconds / 60))
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%d min", minutes)
	}
	if math.IsInf(straightLineMeters, 0) || math.IsNaN(straightLineMeters) {
		return "calculating"
	}
	return fmt.Sprintf("~%d min", fallbackETAMinutes(straightLineMeters, fallbackSpeedKMH))
}
