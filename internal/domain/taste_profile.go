package domain

// TasteProfile — набор центроидов, описывающий мультимодальный вкус пользователя.
// Производные данные: пересчитываются по запросу и не персистятся.
type TasteProfile struct {
	UserID    int64
	Centroids [][]float32
}

func NewTasteProfile(userID int64, centroids [][]float32) *TasteProfile {
	return &TasteProfile{
		UserID:    userID,
		Centroids: centroids,
	}
}

// IsEmpty сообщает, что профиль построить не удалось и пользователь нерекомендуем.
func (p *TasteProfile) IsEmpty() bool {
	return p == nil || len(p.Centroids) == 0
}
