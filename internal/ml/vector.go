// Package ml содержит векторное ядро рекомендаций: нормализацию, k-means,
// метрику Чамфера и индекс ближайших соседей.
package ml

import "math"

// normEpsilon подставляется вместо нулевой нормы, чтобы избежать деления на ноль
const normEpsilon = 1e-9

// NormalizeL2 возвращает копию вектора с единичной L2-нормой.
func NormalizeL2(v []float32) []float32 {
	out := make([]float32, len(v))
	norm := L2Norm(v)
	if norm == 0 {
		norm = normEpsilon
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// NormalizeRows нормализует каждую строку матрицы, возвращая новую матрицу.
func NormalizeRows(rows [][]float32) [][]float32 {
	out := make([][]float32, len(rows))
	for i, row := range rows {
		out[i] = NormalizeL2(row)
	}
	return out
}

// L2Norm возвращает евклидову норму вектора.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Dot возвращает скалярное произведение векторов одинаковой длины.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Mean возвращает поэлементное среднее непустого набора векторов.
func Mean(rows [][]float32) []float32 {
	if len(rows) == 0 {
		return nil
	}

	dim := len(rows[0])
	out := make([]float32, dim)
	for _, row := range rows {
		for j := 0; j < dim; j++ {
			out[j] += row[j]
		}
	}

	n := float32(len(rows))
	for j := range out {
		out[j] /= n
	}
	return out
}

func l2Squared(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
