package model

import "time"

// Factory is a reporting entity submitting KPI values per period.
type Factory struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Region   string `json:"region,omitempty"`
	Province string `json:"province,omitempty"`
}

// SectorShare is a factory's exposure to a coarse sector, in [0,1].
// Shares of one factory need not sum to 1.
type SectorShare struct {
	FactoryID string  `json:"factory_id"`
	Sector    string  `json:"sector"`
	Share     float64 `json:"share"`
}

// WeightOverride scales a StrategicTarget score for one factory.
type WeightOverride struct {
	FactoryID         string  `json:"factory_id"`
	StrategicTargetID string  `json:"strategic_target_id"`
	Weight            float64 `json:"weight"`
}

// KpiValue is one factory submission. (KpiID, FactoryID, Period) is unique.
type KpiValue struct {
	ID        string    `json:"id"`
	KpiID     int64     `json:"kpi_id"`
	FactoryID string    `json:"factory_id"`
	Period    Period    `json:"period"`
	Value     float64   `json:"value"`
	NaceCode  string    `json:"nace_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Evidence is an evidentiary record used for anonymized statistics.
type Evidence struct {
	ID            string  `json:"id"`
	FactoryID     string  `json:"factory_id"`
	Period        Period  `json:"period"`
	NaceCode      string  `json:"nace_code,omitempty"`
	EmployeeCount float64 `json:"employee_count"`
	Revenue       float64 `json:"revenue"`
	Exporter      bool    `json:"exporter"`
}
