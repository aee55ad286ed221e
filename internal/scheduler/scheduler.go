// Пакет scheduler определяет порядок воспроизведения очереди вечеринки.
// Все функции чистые: одинаковый вход всегда даёт одинаковый порядок,
// поэтому клиенты могут пересчитывать его локально и сходиться с сервером.
package scheduler

import (
	"sort"
	"time"

	"karaoke_party/internal/models"
)

// Policy — настройки порядка, снятые с вечеринки
type Policy struct {
	Fairness   bool // Ротация по исполнителям вместо FIFO
	ManualSort bool // Явный порядок организатора, планировщик не вмешивается
}

// PolicyOf снимает настройки порядка с вечеринки
func PolicyOf(party *models.Party) Policy {
	return Policy{
		Fairness:   party.FairnessEnabled,
		ManualSort: party.ManualSortEnabled,
	}
}

// SplitPlayed делит элементы на сыгранные (по времени исполнения) и несыгранные
func SplitPlayed(items []models.QueueItem) (played, unplayed []models.QueueItem) {
	for _, it := range items {
		if it.PlayedAt != nil {
			played = append(played, it)
		} else {
			unplayed = append(unplayed, it)
		}
	}
	sort.SliceStable(played, func(i, j int) bool {
		return played[i].PlayedAt.Before(*played[j].PlayedAt)
	})
	return played, unplayed
}

// LastPlayedSinger возвращает исполнителя последней сыгранной песни.
// Пустая строка — ещё никто не пел.
func LastPlayedSinger(items []models.QueueItem) string {
	var last *time.Time
	singer := ""
	for i := range items {
		if items[i].PlayedAt == nil {
			continue
		}
		if last == nil || items[i].PlayedAt.After(*last) {
			last = items[i].PlayedAt
			singer = items[i].SingerName
		}
	}
	return singer
}

// Order строит порядок несыгранных элементов. Приоритетные песни всегда
// впереди (в порядке добавления), остальные — по выбранной политике.
func Order(items []models.QueueItem, lastPlayedSinger string, p Policy) []models.QueueItem {
	_, unplayed := SplitPlayed(items)

	var priority, normal []models.QueueItem
	for _, it := range unplayed {
		if it.IsPriority {
			priority = append(priority, it)
		} else {
			normal = append(normal, it)
		}
	}
	sortByAddedAt(priority)

	switch {
	case p.ManualSort:
		sort.SliceStable(normal, func(i, j int) bool {
			if normal[i].Position != normal[j].Position {
				return normal[i].Position < normal[j].Position
			}
			return less(normal[i], normal[j])
		})
	case p.Fairness:
		normal = roundRobin(normal, lastPlayedSinger)
	default:
		sortByAddedAt(normal)
	}

	return append(priority, normal...)
}

// Head возвращает единственного легитимного кандидата на воспроизведение
func Head(items []models.QueueItem, lastPlayedSinger string, p Policy) *models.QueueItem {
	ordered := Order(items, lastPlayedSinger, p)
	if len(ordered) == 0 {
		return nil
	}
	return &ordered[0]
}

// roundRobin собирает раунды: по одной песне от каждого исполнителя за круг.
// Исполнитель последней сыгранной песни сдвигается в конец раунда, если в нём
// участвует кто-то ещё. Внутри исполнителя порядок добавления не меняется.
func roundRobin(normal []models.QueueItem, lastPlayedSinger string) []models.QueueItem {
	groups := make(map[string][]models.QueueItem)
	for _, it := range normal {
		groups[it.SingerName] = append(groups[it.SingerName], it)
	}
	for singer := range groups {
		sortByAddedAt(groups[singer])
	}

	result := make([]models.QueueItem, 0, len(normal))
	for len(result) < len(normal) {
		// Кандидаты раунда — исполнители с неисчерпанными песнями,
		// упорядоченные по самой ранней из оставшихся
		singers := make([]string, 0, len(groups))
		for singer, rest := range groups {
			if len(rest) > 0 {
				singers = append(singers, singer)
			}
		}
		sort.Slice(singers, func(i, j int) bool {
			return less(groups[singers[i]][0], groups[singers[j]][0])
		})

		if len(singers) > 1 {
			for i, singer := range singers {
				if singer == lastPlayedSinger {
					singers = append(append(singers[:i:i], singers[i+1:]...), singer)
					break
				}
			}
		}

		for _, singer := range singers {
			result = append(result, groups[singer][0])
			groups[singer] = groups[singer][1:]
		}
	}
	return result
}

func sortByAddedAt(items []models.QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})
}

// less упорядочивает по времени добавления; «одновременные» элементы
// разрешаются ключом tiebreak, поэтому порядок полный и детерминированный
func less(a, b models.QueueItem) bool {
	if a.AddedAt != b.AddedAt {
		return a.AddedAt < b.AddedAt
	}
	return a.TiebreakKey < b.TiebreakKey
}
