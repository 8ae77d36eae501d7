package models

// ECGData одна точка сигнала от устройства через MQTT
type ECGData struct {
	DeviceID string  `json:"device_id"`
	DataType string  `json:"data_type"` // "ecg_waveform"
	Value    float64 `json:"value"`
	Units    string  `json:"units"` // "mV"
	TimeSec  float64 `json:"time_sec"`
}
