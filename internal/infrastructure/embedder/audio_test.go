package embedder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWAV собирает валидный RIFF/WAVE контейнер с PCM16-данными.
func buildWAV(samples []int16, channels, sampleRate int) []byte {
	dataSize := len(samples) * 2
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}

func TestDecodeWAVMono(t *testing.T) {
	wav := buildWAV([]int16{0, 16384, -16384, 32767}, 1, 16000)

	samples, rate, err := decodeWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	require.Len(t, samples, 4)
	assert.InDelta(t, 0.0, float64(samples[0]), 1e-4)
	assert.InDelta(t, 0.5, float64(samples[1]), 1e-4)
	assert.InDelta(t, -0.5, float64(samples[2]), 1e-4)
	assert.InDelta(t, 1.0, float64(samples[3]), 1e-3)
}

// Стерео сводится в моно усреднением каналов.
func TestDecodeWAVStereoDownmix(t *testing.T) {
	wav := buildWAV([]int16{16384, -16384, 16384, 16384}, 2, 44100)

	samples, rate, err := decodeWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	require.Len(t, samples, 2)
	assert.InDelta(t, 0.0, float64(samples[0]), 1e-4)
	assert.InDelta(t, 0.5, float64(samples[1]), 1e-4)
}

func TestDecodeWAVRejectsCompressed(t *testing.T) {
	wav := buildWAV([]int16{0, 0}, 1, 16000)
	// audio format в fmt-чанке: 1 → 7 (µ-law)
	wav[20] = 7

	_, _, err := decodeWAV(wav)
	assert.ErrorContains(t, err, "unsupported audio format")
}

func TestDecodeWAVTruncated(t *testing.T) {
	wav := buildWAV([]int16{0, 0, 0, 0}, 1, 16000)

	_, _, err := decodeWAV(wav[:len(wav)-3])
	assert.Error(t, err)
}

func TestDecodeAudioSniffsWAV(t *testing.T) {
	wav := buildWAV([]int16{100, 200}, 1, 8000)

	_, rate, err := decodeAudio(wav)
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
}

func TestDecodeAudioGarbage(t *testing.T) {
	_, _, err := decodeAudio([]byte("definitely not audio data at all"))
	assert.Error(t, err)
}

func TestResampleDownsamples(t *testing.T) {
	in := make([]float32, 100)
	for i := range in {
		in[i] = float32(i)
	}

	out := resample(in, 20, 10)
	require.Len(t, out, 50)

	// линейная интерполяция сохраняет монотонность
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], out[i-1])
	}
}

func TestResampleNoop(t *testing.T) {
	in := []float32{1, 2, 3}
	assert.Equal(t, in, resample(in, 16000, 16000))
}

func TestResampleUpsamples(t *testing.T) {
	out := resample([]float32{0, 1}, 10, 20)
	assert.Len(t, out, 4)
}
