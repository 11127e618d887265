package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/gift"
	"gonum.org/v1/gonum/stat"
)

// edgeThreshold is the Sobel magnitude above which a pixel counts as an edge
const edgeThreshold = 50

// metricsCalculator implements MetricsCalculator with Gonum statistics
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

// CalculateBasicMetrics computes basic image metrics with parallel processing and Gonum optimizations
func (omc *metricsCalculator) CalculateBasicMetrics(img image.Image) metrics {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Handle empty images
	if width == 0 || height == 0 {
		return metrics{}
	}

	// Use parallel processing for better performance
	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
		if numWorkers == 0 {
			numWorkers = 1
		}
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	type regionResult struct {
		sat, r, g, b float64
		pixelCount   int
	}

	results := make(chan regionResult, numWorkers)
	var wg sync.WaitGroup

	// Process image in horizontal strips for better cache locality
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 || endY > bounds.Max.Y {
			endY = bounds.Max.Y
		}
		go func(startY, endY int) {
			defer wg.Done()

			var sat, r, g, b float64
			pixelCount := 0

			for y := startY; y < endY && y < bounds.Max.Y; y++ {
				for x := bounds.Min.X; x < bounds.Max.X; x++ {
					rVal, gVal, bVal, _ := img.At(x, y).RGBA()
					// Convert from 16-bit to normalized float64
					rf := float64(rVal) / 65535.0
					gf := float64(gVal) / 65535.0
					bf := float64(bVal) / 65535.0

					_, s, _ := omc.rgbToHSV(rf, gf, bf)
					sat += s
					r += rf
					g += gf
					b += bf
					pixelCount++
				}
			}

			results <- regionResult{sat, r, g, b, pixelCount}
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Aggregate results using Gonum statistical functions
	var totalSat, totalR, totalG, totalB float64
	totalPixelCount := 0

	for result := range results {
		totalSat += result.sat
		totalR += result.r
		totalG += result.g
		totalB += result.b
		totalPixelCount += result.pixelCount
	}

	// Handle case where no pixels were processed
	if totalPixelCount == 0 {
		return metrics{}
	}

	pixelCount := float64(totalPixelCount)
	return metrics{
		avgSaturation: totalSat / pixelCount,
		avgR:          totalR / pixelCount,
		avgG:          totalG / pixelCount,
		avgB:          totalB / pixelCount,
	}
}

// CalculateLaplacianVariance computes Laplacian variance using Gonum operations
func (omc *metricsCalculator) CalculateLaplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Get reusable slice from pool
	data := omc.slicePool.Get().([]float64)
	defer func() { omc.slicePool.Put(data[:0]) }()

	if width < 3 || height < 3 {
		return 0
	}

	// Ensure capacity for all Laplacian values
	if cap(data) < (width-2)*(height-2) {
		data = make([]float64, 0, (width-2)*(height-2))
	}

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)

			laplacian := -4*center + top + bottom + left + right
			data = append(data, laplacian)
		}
	}

	if len(data) == 0 {
		return 0
	}

	// Use Gonum's variance calculation
	return stat.Variance(data, nil)
}

// CalculateLuminanceStats returns the population mean and variance of the
// gray levels in a single pass over the pixels
func (omc *metricsCalculator) CalculateLuminanceStats(gray *image.Gray) (mean, variance float64) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0, 0
	}

	data := omc.slicePool.Get().([]float64)
	defer func() { omc.slicePool.Put(data[:0]) }()

	if cap(data) < width*height {
		data = make([]float64, 0, width*height)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(bounds.Min.X, y):gray.PixOffset(bounds.Max.X, y)]
		for _, v := range row {
			data = append(data, float64(v))
		}
	}

	return stat.PopMeanVariance(data, nil)
}

// CalculateEdgeDensity returns the fraction of pixels whose Sobel
// magnitude exceeds edgeThreshold
func (omc *metricsCalculator) CalculateEdgeDensity(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return 0
	}

	g := gift.New(gift.Sobel())
	edges := image.NewGray(g.Bounds(bounds))
	g.Draw(edges, gray)

	edgeCount := 0
	for _, v := range edges.Pix {
		if v > edgeThreshold {
			edgeCount++
		}
	}
	return float64(edgeCount) / float64(len(edges.Pix))
}

// rgbToHSV provides RGB to HSV conversion
func (omc *metricsCalculator) rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max
	}

	if delta == 0 {
		h = 0
	} else if max == r {
		h = 60 * (((g - b) / delta) + 0)
	} else if max == g {
		h = 60 * (((b - r) / delta) + 2)
	} else {
		h = 60 * (((r - g) / delta) + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}
