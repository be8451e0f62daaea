package embedder

import "math/rand"

// crops вырезает из сэмплов фрагменты фиксированной длины для инференса:
// центральный и, если длины хватает, один случайный непересекающийся.
// Короткий сигнал дополняется нулями до полной длины фрагмента.
func crops(samples []float32, cropLen int, rng *rand.Rand) [][]float32 {
	if len(samples) <= cropLen {
		return [][]float32{pad(samples, cropLen)}
	}

	centerStart := (len(samples) - cropLen) / 2
	center := samples[centerStart : centerStart+cropLen]

	result := [][]float32{center}

	// непересекающийся фрагмент выбирается слева или справа от центрального,
	// если хотя бы с одной стороны достаточно места
	leftRoom := centerStart
	rightRoom := len(samples) - (centerStart + cropLen)

	switch {
	case leftRoom >= cropLen && rightRoom >= cropLen:
		if rng.Intn(2) == 0 {
			result = append(result, randomCrop(samples[:centerStart], cropLen, rng))
		} else {
			result = append(result, randomCrop(samples[centerStart+cropLen:], cropLen, rng))
		}
	case leftRoom >= cropLen:
		result = append(result, randomCrop(samples[:centerStart], cropLen, rng))
	case rightRoom >= cropLen:
		result = append(result, randomCrop(samples[centerStart+cropLen:], cropLen, rng))
	}

	return result
}

func randomCrop(samples []float32, cropLen int, rng *rand.Rand) []float32 {
	start := rng.Intn(len(samples) - cropLen + 1)
	return samples[start : start+cropLen]
}

func pad(samples []float32, length int) []float32 {
	if len(samples) >= length {
		return samples[:length]
	}

	out := make([]float32, length)
	copy(out, samples)
	return out
}
