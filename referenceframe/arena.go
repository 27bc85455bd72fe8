package referenceframe

import (
	"github.com/go-gl/mathgl/mgl64"

	"go.viam.com/armkin/spatialmath"
)

// NoParent marks a root frame in an Arena.
const NoParent = -1

type frameNode struct {
	name   string
	parent int
	local  mgl64.Mat4
}

// Arena stores frames by integer ID. Each frame holds its transform relative to an optional
// parent; global transforms are found by walking the parent chain. A parent must be added
// before its children, so the chain cannot loop.
type Arena struct {
	nodes []frameNode
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add inserts a frame and returns its ID.
func (a *Arena) Add(name string, parent int, local mgl64.Mat4) (int, error) {
	if parent != NoParent && (parent < 0 || parent >= len(a.nodes)) {
		return 0, NewParentFrameMissingError(parent)
	}
	a.nodes = append(a.nodes, frameNode{name: name, parent: parent, local: local})
	return len(a.nodes) - 1, nil
}

// Len is the number of frames.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Name returns the name of frame id.
func (a *Arena) Name(id int) string {
	return a.nodes[id].name
}

// Parent returns the parent of frame id, or NoParent.
func (a *Arena) Parent(id int) int {
	return a.nodes[id].parent
}

// SetLocal replaces the transform of frame id relative to its parent.
func (a *Arena) SetLocal(id int, local mgl64.Mat4) {
	a.nodes[id].local = local
}

// Local returns the transform of frame id relative to its parent.
func (a *Arena) Local(id int) mgl64.Mat4 {
	return a.nodes[id].local
}

// Global composes the transforms from the root down to frame id.
func (a *Arena) Global(id int) mgl64.Mat4 {
	m := a.nodes[id].local
	for p := a.nodes[id].parent; p != NoParent; p = a.nodes[p].parent {
		m = a.nodes[p].local.Mul4(m)
	}
	return m
}

// GlobalPose is Global as a Pose.
func (a *Arena) GlobalPose(id int) spatialmath.Pose {
	return spatialmath.NewPoseFromMatrix(a.Global(id))
}

// Origins returns the world position of every frame, indexed by ID.
func (a *Arena) Origins() []spatialmath.Pose {
	poses := make([]spatialmath.Pose, len(a.nodes))
	for id := range a.nodes {
		poses[id] = a.GlobalPose(id)
	}
	return poses
}
