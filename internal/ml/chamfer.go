package ml

// ChamferSimilarity вычисляет симметризованную асимметричную меру Чамфера
// между двумя наборами центроидов:
//
//	sim(A→B) = (1/|A|) * Σ_{a∈A} max_{b∈B} cos(a, b)
//	result  = (sim(A→B) + sim(B→A)) / 2
//
// Усреднение центроидов в один вектор теряет мультимодальность вкуса;
// Чамфер сохраняет сигнал частичного пересечения кластеров в обе стороны.
// Для пустого входа возвращается 0.0.
func ChamferSimilarity(a, b [][]float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	an := NormalizeRows(a)
	bn := NormalizeRows(b)

	return (oneWayChamfer(an, bn) + oneWayChamfer(bn, an)) / 2
}

// oneWayChamfer усредняет по строкам A лучшее косинусное сходство со строками B.
// Входные наборы уже нормализованы, косинус равен скалярному произведению.
func oneWayChamfer(a, b [][]float32) float64 {
	var total float64
	for _, av := range a {
		best := -1.0
		for _, bv := range b {
			if sim := Dot(av, bv); sim > best {
				best = sim
			}
		}
		total += best
	}

	return total / float64(len(a))
}
