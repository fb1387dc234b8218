// Package di provides a minimal dependency injection container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry provides read access to registered services.
type ServiceRegistry interface {
	// Get returns the service registered under name, resolving a lazy
	// factory on first access. It panics if the name is unknown.
	Get(name string) any
}

// Container extends ServiceRegistry with registration.
type Container interface {
	ServiceRegistry

	// Register stores an already-built service instance.
	Register(name string, svc any)

	// RegisterLazy stores a factory invoked once on first Get.
	RegisterLazy(name string, factory func(ServiceRegistry) any)
}

type entry struct {
	instance any
	factory  func(ServiceRegistry) any
	resolved bool
}

type container struct {
	mu       sync.Mutex
	services map[string]*entry
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{services: make(map[string]*entry)}
}

func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = &entry{instance: svc, resolved: true}
}

func (c *container) RegisterLazy(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = &entry{factory: factory}
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	e, ok := c.services[name]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: service not registered: %s", name))
	}
	if e.resolved {
		c.mu.Unlock()
		return e.instance
	}
	// Mark resolved before calling the factory so factories can look up
	// other services without re-entering this entry.
	factory := e.factory
	e.resolved = true
	c.mu.Unlock()

	instance := factory(c)

	c.mu.Lock()
	e.instance = instance
	c.mu.Unlock()
	return instance
}

// Token is a typed service key.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token with a unique service name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the underlying service name.
func (t Token[T]) Name() string { return t.name }

// RegisterToken registers a lazily-constructed service under a typed token.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.RegisterLazy(tok.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed token from the registry.
func GetToken[T any](sr ServiceRegistry, tok Token[T]) T {
	svc, ok := sr.Get(tok.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %s has unexpected type", tok.name))
	}
	return svc
}
