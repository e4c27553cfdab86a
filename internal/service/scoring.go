package service

import "time"

const (
	distanceWindowKm  = 100.0
	recencyWindowDays = 180.0
	distanceWeight    = 0.6
	recencyWeight     = 0.4
)

// distanceScore normalizes a distance into [0,1]; 0 km scores 1, anything at
// or beyond the 100 km window scores 0.
func distanceScore(distanceKm float64) float64 {
	if distanceKm < 0 {
		distanceKm = 0
	}
	ratio := distanceKm / distanceWindowKm
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}

// recencyScore normalizes time since the last donation into [0,1] over a
// 180 day window. A donor with no recorded donation scores 0.
func recencyScore(lastDonation *time.Time, now time.Time) float64 {
	if lastDonation == nil {
		return 0
	}
	days := now.Sub(*lastDonation).Hours() / 24
	score := 1 - days/recencyWindowDays
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// compositeScore is the weighted rank used to order candidates: 60% distance,
// 40% recency, always in [0,1].
func compositeScore(distanceKm float64, lastDonation *time.Time, now time.Time) float64 {
	return distanceWeight*distanceScore(distanceKm) + recencyWeight*recencyScore(lastDonation, now)
}
