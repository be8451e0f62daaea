package ml

import (
	"errors"
	"math"
	"math/rand"
)

// kmeansMaxIter ограничивает число итераций одного запуска
const kmeansMaxIter = 100

var errInsufficientData = errors.New("insufficient data for k-means: n < k")

// KMeans кластеризует векторы на k центроидов.
// Запускается inits раз с детерминированным rng (один seed — один результат),
// возвращается разбиение с минимальной суммарной внутрикластерной дисперсией.
func KMeans(vectors [][]float32, k, inits int, seed int64) ([][]float32, error) {
	n := len(vectors)
	if n < k {
		return nil, errInsufficientData
	}
	if k <= 0 {
		return nil, errors.New("cluster count must be positive")
	}
	if inits <= 0 {
		inits = 1
	}

	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return nil, errors.New("k-means input rows have different dimensions")
		}
	}

	rng := rand.New(rand.NewSource(seed))

	var (
		best        [][]float32
		bestInertia = math.Inf(1)
	)
	for i := 0; i < inits; i++ {
		centroids, inertia := trainOnce(vectors, n, dim, k, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			best = centroids
		}
	}

	return best, nil
}

// trainOnce выполняет один запуск алгоритма Ллойда.
// Возвращает центроиды и инерцию (сумму квадратов расстояний до своих центроидов).
func trainOnce(vectors [][]float32, n, dim, k int, rng *rand.Rand) ([][]float32, float64) {
	centroids := make([][]float32, k)

	// Инициализация: k случайных различных точек из данных
	perm := rng.Perm(n)
	for c := 0; c < k; c++ {
		centroids[c] = append([]float32(nil), vectors[perm[c]]...)
	}

	assignments := make([]int, n)
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < kmeansMaxIter; iter++ {
		clear(sums)
		clear(counts)

		changed := 0

		// E-шаг: каждая точка — к ближайшему центроиду
		for i, vec := range vectors {
			bestDist := math.Inf(1)
			bestC := 0
			for c := 0; c < k; c++ {
				if dist := l2Squared(vec, centroids[c]); dist < bestDist {
					bestDist = dist
					bestC = c
				}
			}

			if assignments[i] != bestC {
				changed++
				assignments[i] = bestC
			}

			counts[bestC]++
			sum := sums[bestC*dim : (bestC+1)*dim]
			for j := 0; j < dim; j++ {
				sum[j] += vec[j]
			}
		}

		// M-шаг: пересчёт центроидов
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				cnt := float32(counts[c])
				sum := sums[c*dim : (c+1)*dim]
				for j := 0; j < dim; j++ {
					centroids[c][j] = sum[j] / cnt
				}
			} else {
				// Пустой кластер переинициализируем случайной точкой данных
				copy(centroids[c], vectors[rng.Intn(n)])
			}
		}

		if iter > 0 && changed == 0 {
			break
		}
	}

	var inertia float64
	for i, vec := range vectors {
		inertia += l2Squared(vec, centroids[assignments[i]])
	}

	return centroids, inertia
}
