package kinematics

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/utils"
)

// ErrNoModelInformation is used when there is no model information.
var ErrNoModelInformation = errors.New("no model information")

// ModelConfigJSON represents all supported fields in a kinematics JSON file.
type ModelConfigJSON struct {
	Name         string          `json:"name"`
	KinParamType string          `json:"kinematic_param_type,omitempty"`
	DHParams     []DHParamConfig `json:"dhParams"`
}

// DHParamConfig is one row of a DH table. Lengths are in mm, alpha and theta in radians and
// joint limits in degrees. A row without limits is unbounded.
type DHParamConfig struct {
	ID      string   `json:"id"`
	D       float64  `json:"d"`
	A       float64  `json:"a"`
	Alpha   float64  `json:"alpha"`
	Theta   float64  `json:"theta"`
	Virtual bool     `json:"virtual,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// Model is a named DH table with one joint limit per row. Virtual rows get a fixed limit at
// their theta.
type Model struct {
	Name   string
	Table  *DHTable
	Limits []referenceframe.JointLimit
	ids    []string
}

// ActuatedLimits returns the limits of the non-virtual rows.
func (m *Model) ActuatedLimits() []referenceframe.JointLimit {
	limits := make([]referenceframe.JointLimit, 0, len(m.Limits))
	for _, i := range m.Table.ActuatedIndices() {
		limits = append(limits, m.Limits[i])
	}
	return limits
}

// JointNames returns the ID of every non-virtual row.
func (m *Model) JointNames() []string {
	names := make([]string, 0, len(m.ids))
	for _, i := range m.Table.ActuatedIndices() {
		names = append(names, m.ids[i])
	}
	return names
}

// Copy returns a model sharing nothing mutable with m.
func (m *Model) Copy() *Model {
	return &Model{
		Name:   m.Name,
		Table:  m.Table.Copy(),
		Limits: append([]referenceframe.JointLimit(nil), m.Limits...),
		ids:    append([]string(nil), m.ids...),
	}
}

// UnmarshalModelJSON will parse the given JSON data into a kinematics model. modelName sets the name of the model,
// will use the name from the JSON if string is empty.
func UnmarshalModelJSON(jsonData []byte, modelName string) (*Model, error) {
	// empty data probably means that the arm has no model information
	if len(jsonData) == 0 {
		return nil, ErrNoModelInformation
	}
	cfg := &ModelConfigJSON{}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}
	return cfg.ParseConfig(modelName)
}

// ParseModelJSONFile will read a given file and then parse the contained JSON data.
func ParseModelJSONFile(filename, modelName string) (*Model, error) {
	//nolint:gosec
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}
	return UnmarshalModelJSON(jsonData, modelName)
}

// ParseConfig converts the ModelConfig struct into a full Model with the name modelName.
func (cfg *ModelConfigJSON) ParseConfig(modelName string) (*Model, error) {
	if modelName == "" {
		modelName = cfg.Name
	}
	if cfg.KinParamType != "" && cfg.KinParamType != "DH" {
		return nil, errors.Errorf("unsupported param type: %s, supported params are DH", cfg.KinParamType)
	}
	n := len(cfg.DHParams)
	d, a, alpha, theta := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	virtual := make([]bool, n)
	limits := make([]referenceframe.JointLimit, n)
	ids := make([]string, n)
	for i, row := range cfg.DHParams {
		if row.ID == "" {
			return nil, errors.Errorf("dhParams[%d] has no id", i)
		}
		if !isFinite(row.D, row.A, row.Alpha, row.Theta) {
			return nil, errors.Errorf("dhParams[%d] (%s) has a non-finite parameter", i, row.ID)
		}
		d[i], a[i], alpha[i], theta[i], virtual[i] = row.D, row.A, row.Alpha, row.Theta, row.Virtual
		ids[i] = row.ID

		switch {
		case row.Virtual:
			limits[i] = referenceframe.NewFixedJointLimit(row.Theta)
		case row.Min == nil && row.Max == nil:
			limits[i] = referenceframe.NewUnboundedJointLimit()
		case row.Min == nil || row.Max == nil:
			return nil, errors.Errorf("dhParams[%d] (%s) must set both min and max or neither", i, row.ID)
		default:
			limits[i] = referenceframe.NewJointLimitDegrees(*row.Min, *row.Max)
		}
	}
	table, err := NewDHTable(d, a, alpha, theta, virtual)
	if err != nil {
		return nil, err
	}
	if table.NumActuated() == 0 {
		return nil, errors.Errorf("model %q has no actuated joints", modelName)
	}
	return &Model{Name: modelName, Table: table, Limits: limits, ids: ids}, nil
}

func isFinite(values ...float64) bool {
	for _, v := range values {
		if !utils.IsFinite(v) {
			return false
		}
	}
	return true
}
