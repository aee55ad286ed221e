// Пакет rooms выдаёт по одной блокировке на вечеринку: каждая мутация
// (add/remove/play/pause/advance/reorder) выполняет чтение-вычисление-запись
// целиком под блокировкой своей комнаты, поэтому два одновременных skip не
// могут переключить две песни. Записи реестра живут до конца процесса:
// удаление под ногами у ждущих в Lock горутин разорвало бы сериализацию,
// а рост реестра ограничен числом вечеринок.
package rooms

import "sync"

var (
	mu    sync.Mutex
	locks = make(map[string]*sync.Mutex)
)

// Lock захватывает блокировку комнаты по коду вечеринки
func Lock(partyCode string) {
	mu.Lock()
	l, ok := locks[partyCode]
	if !ok {
		l = &sync.Mutex{}
		locks[partyCode] = l
	}
	mu.Unlock()
	l.Lock()
}

// Unlock освобождает блокировку комнаты
func Unlock(partyCode string) {
	mu.Lock()
	l, ok := locks[partyCode]
	mu.Unlock()
	if ok {
		l.Unlock()
	}
}
