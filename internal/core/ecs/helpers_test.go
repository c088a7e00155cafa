package ecs_test

import (
	"fmt"

	"github.com/l1jgo/entitycore/internal/core/ecs"
)

// node is a minimal Identifiable used by the registry and world tests.
type node struct {
	id   ecs.ID
	name string
}

func (n *node) ID() ecs.ID      { return n.id }
func (n *node) SetID(id ecs.ID) { n.id = id }
func (n *node) String() string  { return n.name }

func newNodes(n int) []*node {
	out := make([]*node, n)
	for i := range out {
		out[i] = &node{name: fmt.Sprintf("n%d", i)}
	}
	return out
}
