package kinematics

import (
	"fmt"

	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
)

// Forward sets the table's joint angles and returns the pose of the last row relative to the
// base. angles holds either one value per row or one per actuated row, in which case virtual
// rows keep their theta. The table's thetas are the only state it changes.
func Forward(table *DHTable, angles []float64) (spatialmath.Pose, error) {
	var err error
	switch len(angles) {
	case table.Len():
		err = table.SetThetas(angles)
	case table.NumActuated():
		err = table.SetActuatedThetas(angles)
	default:
		err = referenceframe.NewIncorrectDoFError(len(angles), table.NumActuated())
	}
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return spatialmath.NewPoseFromMatrix(table.EndTransform()), nil
}

// ForwardInputs is Forward over joint inputs.
func ForwardInputs(table *DHTable, inputs []referenceframe.Input) (spatialmath.Pose, error) {
	return Forward(table, referenceframe.InputsToFloats(inputs))
}

// JointFrames returns an arena holding one frame per row at the table's current angles. Each
// frame is parented to the previous row, so its global transform is the pose of that joint.
func JointFrames(table *DHTable) *referenceframe.Arena {
	arena := referenceframe.NewArena()
	parent := referenceframe.NoParent
	for i := 0; i < table.Len(); i++ {
		name := fmt.Sprintf("joint_%d", i)
		if table.IsVirtual(i) {
			name = fmt.Sprintf("virtual_%d", i)
		}
		// parent is always the previous ID, so Add cannot fail.
		parent, _ = arena.Add(name, parent, table.TransformMatrix(i))
	}
	return arena
}
