package referenceframe

import (
	"gonum.org/v1/gonum/floats"

	"go.viam.com/armkin/utils"
)

// Input wraps the input to a joint. Revolute inputs are in radians.
type Input struct {
	Value float64
}

// FloatsToInputs wraps a slice of floats in Inputs.
func FloatsToInputs(floats []float64) []Input {
	inputs := make([]Input, len(floats))
	for i, f := range floats {
		inputs[i] = Input{f}
	}
	return inputs
}

// InputsToFloats unwraps Inputs to raw floats.
func InputsToFloats(inputs []Input) []float64 {
	floats := make([]float64, len(inputs))
	for i, f := range inputs {
		floats[i] = f.Value
	}
	return floats
}

// InputsFromDegrees converts joint angles in degrees to Inputs in radians.
func InputsFromDegrees(degrees []float64) []Input {
	inputs := make([]Input, len(degrees))
	for i, d := range degrees {
		inputs[i] = Input{utils.DegToRad(d)}
	}
	return inputs
}

// InputsToDegrees converts Inputs in radians to degrees.
func InputsToDegrees(inputs []Input) []float64 {
	degrees := make([]float64, len(inputs))
	for i, in := range inputs {
		degrees[i] = utils.RadToDeg(in.Value)
	}
	return degrees
}

// InputsL2Distance returns the square root of the sum of squared joint differences.
func InputsL2Distance(from, to []Input) float64 {
	if len(from) != len(to) {
		return 0
	}
	diff := make([]float64, 0, len(from))
	for i, f := range from {
		diff = append(diff, utils.AngleDiff(f.Value, to[i].Value))
	}
	return floats.Norm(diff, 2)
}

// CheckLimits returns an AngleOutOfBoundsError for the first input that its limit rejects.
func CheckLimits(inputs []Input, limits []JointLimit) error {
	if len(inputs) != len(limits) {
		return NewIncorrectDoFError(len(inputs), len(limits))
	}
	for i, in := range inputs {
		if limits[i].IsOutOfBounds(in.Value) {
			return NewAngleOutOfBoundsError(i, in.Value, limits[i])
		}
	}
	return nil
}

// ClampInputs clamps every input into its limit.
func ClampInputs(inputs []Input, limits []JointLimit) ([]Input, error) {
	if len(inputs) != len(limits) {
		return nil, NewIncorrectDoFError(len(inputs), len(limits))
	}
	out := make([]Input, len(inputs))
	for i, in := range inputs {
		out[i] = Input{limits[i].Clamp(in.Value)}
	}
	return out, nil
}
