package max17048

// Default 7-bit I2C address.
const Address = 0x36

// Register map. All registers are 16-bit words, MSB first.
const (
	regVCell    = 0x02 // cell voltage, 78.125 uV/LSB
	regSOC      = 0x04 // state of charge, 1/256 %/LSB
	regMode     = 0x06
	regVersion  = 0x08
	regHibRT    = 0x0A
	regConfig   = 0x0C
	regVAlert   = 0x14
	regCRate    = 0x16 // signed, 0.208 %/h per LSB
	regVResetID = 0x18 // high byte VRESET, low byte chip ID
	regStatus   = 0x1A
	regCmd      = 0xFE
)

const cmdPowerOnReset = 0x5400

// MODE bits.
const (
	modeQuickStart = 1 << 14
	modeEnSleep    = 1 << 13
	modeHibStat    = 1 << 12
)

// CONFIG bits (low byte).
const (
	configSleep = 1 << 7
	configALRT  = 1 << 5
)

// AlertFlag is a bit of the STATUS register high byte.
type AlertFlag uint8

const (
	AlertResetIndicator AlertFlag = 0x01
	AlertVoltageHigh    AlertFlag = 0x02
	AlertVoltageLow     AlertFlag = 0x04
	AlertVoltageReset   AlertFlag = 0x08
	AlertSOCLow         AlertFlag = 0x10
	AlertSOCChange      AlertFlag = 0x20

	alertMask AlertFlag = 0x3F
)

func (f AlertFlag) Has(flag AlertFlag) bool { return f&flag != 0 }
