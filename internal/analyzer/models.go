package analyzer

// metrics holds internal calculation results, channels normalized to [0,1]
type metrics struct {
	avgSaturation    float64
	avgR, avgG, avgB float64
}
