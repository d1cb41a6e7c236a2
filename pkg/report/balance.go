package report

import (
	"math"
	"sort"
)

// BalanceMetrics 酒店间入住率均衡指标
type BalanceMetrics struct {
	MeanOccupancy float64 `json:"mean_occupancy"`
	StdDev        float64 `json:"std_dev"`
	MaxOccupancy  float64 `json:"max_occupancy"`
	MinOccupancy  float64 `json:"min_occupancy"`
	Gini          float64 `json:"gini"` // 0 表示完全均衡
}

func analyzeBalance(rates []float64) BalanceMetrics {
	if len(rates) == 0 {
		return BalanceMetrics{}
	}
	mean := calculateMean(rates)
	max, min := calculateRange(rates)
	return BalanceMetrics{
		MeanOccupancy: mean,
		StdDev:        math.Sqrt(calculateVariance(rates, mean)),
		MaxOccupancy:  max,
		MinOccupancy:  min,
		Gini:          calculateGini(rates),
	}
}

// calculateMean 计算平均值
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
