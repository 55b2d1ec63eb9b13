package docsign

import "sync"

// keyedMutex hands out one mutex per document id so concurrent submissions
// for different documents never contend with each other.
type keyedMutex struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (k *keyedMutex) Lock(key string) {
	k.mutex.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mutex.Unlock()
	l.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mutex.Lock()
	l := k.locks[key]
	k.mutex.Unlock()
	l.Unlock()
}
