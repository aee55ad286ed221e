package rooms

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesRoom(t *testing.T) {
	// Без блокировки комнаты инкременты терялись бы
	const workers = 100
	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			Lock("party-a")
			counter++
			Unlock("party-a")
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestRoomsAreIndependent(t *testing.T) {
	Lock("party-b")
	// Блокировка другой комнаты не должна зависнуть
	done := make(chan struct{})
	go func() {
		Lock("party-c")
		Unlock("party-c")
		close(done)
	}()
	<-done
	Unlock("party-b")
}

func TestLockReusesSameMutex(t *testing.T) {
	// Повторный Lock того же кода сериализуется с уже ждущими горутинами
	Lock("party-d")

	entered := make(chan struct{})
	go func() {
		Lock("party-d")
		close(entered)
		Unlock("party-d")
	}()

	select {
	case <-entered:
		t.Fatal("Вторая горутина вошла в занятую комнату")
	case <-time.After(50 * time.Millisecond):
	}

	Unlock("party-d")
	<-entered
}
