// internal/entity/records.go
package entity

// ModemRecord is one device row as served by the backend loader.
type ModemRecord struct {
	ID      int64          `json:"id" yaml:"id"`
	Name    string         `json:"name" yaml:"name"`
	Host    string         `json:"host" yaml:"host"`
	Port    int            `json:"port" yaml:"port"`
	UnitID  uint8          `json:"unit_id" yaml:"unit_id"`
	Type    int            `json:"type" yaml:"type"`
	Sensors []SensorRecord `json:"sensors" yaml:"sensors"`
}

// SensorRecord binds one input channel of a modem to a conversion rule.
type SensorRecord struct {
	Channel      int   `json:"channel" yaml:"channel"`
	ConversionID int64 `json:"conversion_id" yaml:"conversion_id"`
}

// ConversionRecord is one conversion row as served by the backend loader.
type ConversionRecord struct {
	ID       int64   `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Unit     string  `json:"unit" yaml:"unit"`
	Factor   float64 `json:"factor" yaml:"factor"`
	Offset   float64 `json:"offset" yaml:"offset"`
	Decimals int     `json:"decimals" yaml:"decimals"`
}
