package infrastructure

import "github.com/jayyoonakajaeha/MUSEED/pkg/e"

// GetExtensionFromMIME возвращает расширение файла по MIME-типу аудио.
// Поддерживает wav и mp3. Возвращает ошибку e.ErrUnsupportedMediaType для неподдерживаемых типов.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav", nil
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return "mp3", nil
	case "application/octet-stream":
		return "bin", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}
