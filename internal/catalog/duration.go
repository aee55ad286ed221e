package catalog

import (
	"math/rand"
	"os"
	"regexp"
	"strconv"
)

// Формат длительности YouTube API: PT#H#M#S, любая часть может отсутствовать.
// Дробные секунды (PT1M3.5S) усекаются до целых.
var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.\d+)?S)?$`)

// ParseISODuration разбирает компактную запись длительности и возвращает её в
// целых секундах. Второе значение false — длительность не распознана, вызывающий
// обязан подставить безопасное значение по умолчанию (см. FallbackDurationSec).
func ParseISODuration(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	if m[1] == "" && m[2] == "" && m[3] == "" {
		// Голый "PT" без компонентов
		return 0, false
	}
	total := 0
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		total += h * 3600
	}
	if m[2] != "" {
		min, _ := strconv.Atoi(m[2])
		total += min * 60
	}
	if m[3] != "" {
		sec, _ := strconv.Atoi(m[3])
		total += sec
	}
	return total, true
}

// FallbackDurationSec возвращает случайную длительность в заданных границах
// (по умолчанию 180–240 секунд). Используется, когда каталог не дал
// пригодной длительности: таймер переключения всё равно должен завершаться.
func FallbackDurationSec() int {
	min := envInt("FALLBACK_DURATION_MIN", 180)
	max := envInt("FALLBACK_DURATION_MAX", 240)
	if max < min {
		max = min
	}
	return min + rand.Intn(max-min+1)
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
