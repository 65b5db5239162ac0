package types

// ------------------------
// Fuel gauge (max17048)
// ------------------------

// FuelGaugeInfo describes a probed gauge.
type FuelGaugeInfo struct {
	Bus       string `json:"bus" yaml:"bus"`
	Addr      uint16 `json:"addr" yaml:"addr"`
	ICVersion uint16 `json:"ic_version" yaml:"ic_version"`
	ChipID    uint8  `json:"chip_id" yaml:"chip_id"`
}

// FuelGaugeValue is one fixed-point sample.
type FuelGaugeValue struct {
	CellMicroV  uint32 `json:"cell_uV" yaml:"cell_uV"`
	SOCx100     uint16 `json:"soc_x100" yaml:"soc_x100"`                 // hundredths of a percent, 0..10000
	RateMilliPH int32  `json:"rate_m_pct_per_h" yaml:"rate_m_pct_per_h"` // thousandths of %/h, signed
}
