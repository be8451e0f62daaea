package embedder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// decodeAudio распаковывает WAV (PCM16) или MP3 в моно-сэмплы [-1, 1]
// с частотой дискретизации источника.
func decodeAudio(data []byte) ([]float32, int, error) {
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return decodeWAV(data)
	}

	return decodeMP3(data)
}

// decodeWAV разбирает RIFF-контейнер и извлекает PCM16-сэмплы.
// Поддерживается только несжатый формат (audio format 1).
func decodeWAV(data []byte) ([]float32, int, error) {
	var (
		channels   int
		sampleRate int
		bitDepth   int
		pcm        []byte
	)

	// чанки идут после 12-байтного заголовка RIFF/WAVE
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if body+chunkSize > len(data) {
			return nil, 0, fmt.Errorf("wav: chunk %q exceeds file size", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("wav: fmt chunk too short: %d bytes", chunkSize)
			}

			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, 0, fmt.Errorf("wav: unsupported audio format %d, want PCM", format)
			}

			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// чанки выровнены по чётной границе
		offset = body + chunkSize + chunkSize%2
	}

	if channels == 0 || sampleRate == 0 {
		return nil, 0, fmt.Errorf("wav: missing fmt chunk")
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("wav: missing data chunk")
	}
	if bitDepth != 16 {
		return nil, 0, fmt.Errorf("wav: unsupported bit depth %d, want 16", bitDepth)
	}

	frameSize := 2 * channels
	frames := len(pcm) / frameSize

	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			raw := int16(binary.LittleEndian.Uint16(pcm[i*frameSize+2*ch:]))
			sum += float32(raw) / 32768
		}
		samples[i] = sum / float32(channels)
	}

	return samples, sampleRate, nil
}

// decodeMP3 распаковывает MP3-поток. Декодер всегда отдаёт стерео PCM16.
func decodeMP3(data []byte) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("mp3: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3: %w", err)
	}

	// 2 канала по 2 байта на сэмпл
	frames := len(pcm) / 4
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[4*i:]))
		right := int16(binary.LittleEndian.Uint16(pcm[4*i+2:]))
		samples[i] = (float32(left) + float32(right)) / 2 / 32768
	}

	return samples, dec.SampleRate(), nil
}

// resample приводит сэмплы к целевой частоте линейной интерполяцией.
func resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}

	ratio := float64(from) / float64(to)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		return nil
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}

		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}

	return out
}
