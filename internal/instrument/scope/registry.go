package scope

import "github.com/roman-kulish/labtool/internal/instrument"

func entry(brand, model string, table *Table) instrument.Entry[*Driver] {
	return instrument.Entry[*Driver]{
		Brand: brand,
		Model: model,
		New: func(t instrument.Transport, id instrument.Identity) *Driver {
			return New(t, id, table)
		},
	}
}

// NewRegistry returns a registry populated with the supported oscilloscopes
func NewRegistry() *instrument.Registry[*Driver] {
	return instrument.NewRegistry(instrument.RoleOscilloscope,
		entry("Agilent", "DSO6014A", AgilentDSO6000),
		entry("Agilent", "DSO7014A", AgilentDSO6000),
		entry("Rigol", "DS4014", RigolDS4000),
	)
}
