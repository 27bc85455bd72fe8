// Package sevenaxis holds the kinematics of the reference 7-DOF arm: a base yaw joint 50mm
// below a spherical shoulder, a 215.6mm upper arm, an elbow, a 213.3mm forearm and a spherical
// wrist, followed by a 213.3mm hand and a fixed 50mm flange.
package sevenaxis

import (
	// for embedding model file.
	_ "embed"

	"go.viam.com/armkin/kinematics"
)

// ModelName is the name of the embedded model.
const ModelName = "sevenaxis"

//go:embed sevenaxis_kinematics.json
var modeljson []byte

// MakeModel returns the kinematics model of the arm. An empty name keeps ModelName.
func MakeModel(name string) (*kinematics.Model, error) {
	return kinematics.UnmarshalModelJSON(modeljson, name)
}

// ModelJSON returns a copy of the embedded model file.
func ModelJSON() []byte {
	return append([]byte(nil), modeljson...)
}
