package engine

import (
	"strings"
	"time"
)

// RuntimeProfile задает тайминги записи для одного класса устройств.
// Мобильные клиенты на нестабильных сетях получают более длинные таймауты
// и паузы — исходные сбои записи наблюдались именно на них.
// Профиль определяется один раз при старте и внедряется в исполнителя
// записи и батч-оркестратор; тесты подставляют свой детерминированный.
type RuntimeProfile struct {
	Name            string
	WriteTimeout    time.Duration // таймаут одной попытки записи
	RetryDelay      time.Duration // базовая задержка между ретраями, растет с номером попытки
	InterWriteDelay time.Duration // пауза между последовательными записями батча
	MaxAttempts     int
}

// DesktopProfile — тайминги для настольных клиентов на стабильной сети.
func DesktopProfile() RuntimeProfile {
	return RuntimeProfile{
		Name:            "desktop",
		WriteTimeout:    5 * time.Second,
		RetryDelay:      300 * time.Millisecond,
		InterWriteDelay: 100 * time.Millisecond,
		MaxAttempts:     3,
	}
}

// MobileProfile — тайминги для мобильных/медленных клиентов.
func MobileProfile() RuntimeProfile {
	return RuntimeProfile{
		Name:            "mobile",
		WriteTimeout:    15 * time.Second,
		RetryDelay:      1 * time.Second,
		InterWriteDelay: 400 * time.Millisecond,
		MaxAttempts:     5,
	}
}

// ClientHints — грубые признаки ограниченного клиента. Точный механизм
// определения не является контрактом; достаточно эвристики.
type ClientHints struct {
	UserAgent     string
	ViewportWidth int     // 0 = неизвестно
	DownlinkMbps  float64 // 0 = неизвестно
}

// DetectProfile выбирает профиль по признакам клиента.
func DetectProfile(h ClientHints) RuntimeProfile {
	ua := strings.ToLower(h.UserAgent)
	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone") {
		return MobileProfile()
	}
	if h.ViewportWidth > 0 && h.ViewportWidth < 768 {
		return MobileProfile()
	}
	if h.DownlinkMbps > 0 && h.DownlinkMbps < 1.5 {
		return MobileProfile()
	}
	return DesktopProfile()
}
