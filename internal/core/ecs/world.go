package ecs

import "go.uber.org/zap"

// World is the top-level container for one simulation. It owns the identity
// registry and the world entity store, plus deferred spawn and destruction
// queues flushed by the cleanup system each tick. Listeners that react to
// store events must use the queues instead of mutating the store directly.
type World[E Identifiable] struct {
	registry     *Registry[E]
	entities     *Store[E]
	spawnQueue   []E
	destroyQueue []E
	log          *zap.Logger
}

func NewWorld[E Identifiable](capacity int, log *zap.Logger) *World[E] {
	if log == nil {
		log = zap.NewNop()
	}
	return &World[E]{
		registry:     NewRegistry[E](capacity, log),
		entities:     NewStore[E](capacity),
		spawnQueue:   make([]E, 0, 64),
		destroyQueue: make([]E, 0, 64),
		log:          log,
	}
}

func (w *World[E]) Registry() *Registry[E] { return w.registry }

// Entities is the world store. Filters take it as their source.
func (w *World[E]) Entities() *Store[E] { return w.entities }

// Spawn registers e and adds it to the world store immediately.
func (w *World[E]) Spawn(e E) ID {
	id := w.registry.Register(e)
	w.entities.Add(e)
	return id
}

// Destroy removes e from the world store, then releases its id. It reports
// false if e was not in the world.
func (w *World[E]) Destroy(e E) bool {
	if !w.entities.Remove(e) {
		return false
	}
	w.registry.Unregister(e)
	return true
}

func (w *World[E]) Get(id ID) (E, error) {
	return w.registry.Get(id)
}

func (w *World[E]) Alive(id ID) bool {
	return w.registry.ContainsID(id)
}

// QueueSpawn defers Spawn until the next Flush.
func (w *World[E]) QueueSpawn(e E) {
	w.spawnQueue = append(w.spawnQueue, e)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World[E]) MarkForDestruction(e E) {
	w.destroyQueue = append(w.destroyQueue, e)
}

// Pending returns the number of queued spawns and destructions.
func (w *World[E]) Pending() (spawns, destroys int) {
	return len(w.spawnQueue), len(w.destroyQueue)
}

// Flush applies queued spawns, then queued destructions. Destructions queued
// by listeners during either pass are applied in the same call; spawns queued
// during the destruction pass wait for the next Flush.
func (w *World[E]) Flush() (spawned, destroyed int) {
	var zero E
	for i := 0; i < len(w.spawnQueue); i++ {
		w.Spawn(w.spawnQueue[i])
		w.spawnQueue[i] = zero
		spawned++
	}
	w.spawnQueue = w.spawnQueue[:0]

	for i := 0; i < len(w.destroyQueue); i++ {
		if w.Destroy(w.destroyQueue[i]) {
			destroyed++
		}
		w.destroyQueue[i] = zero
	}
	w.destroyQueue = w.destroyQueue[:0]

	if spawned > 0 || destroyed > 0 {
		w.log.Debug("world flushed",
			zap.Int("spawned", spawned),
			zap.Int("destroyed", destroyed),
			zap.Int("alive", w.registry.Count()),
		)
	}
	return spawned, destroyed
}
