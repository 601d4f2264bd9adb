package domain

// Patient 患者记录（/patients/）
type Patient struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Ward             string    `json:"ward"`
	AssignedDoctorID *int64    `json:"assigned_doctor_id"`
	AssignedDoctor   string    `json:"assigned_doctor,omitempty"`
	SchemeEligible   []string  `json:"scheme_eligible"`
	RiskScore        float64   `json:"risk_score"`
	State            string    `json:"state"`
	CreatedAt        Timestamp `json:"created_at"`
}

// PatientUpdate PATCH /patients/{id} 可编辑字段
// 护士不能修改 RiskScore（服务端同样校验）
type PatientUpdate struct {
	Age       *int     `json:"age,omitempty"`
	Ward      *string  `json:"ward,omitempty"`
	State     *string  `json:"state,omitempty"`
	RiskScore *float64 `json:"risk_score,omitempty"`
}

// RiskSummary /patients/risk-summary
type RiskSummary struct {
	Total        int            `json:"total"`
	AvgRisk      float64        `json:"avg_risk"`
	Buckets      map[string]int `json:"buckets"`
	SchemeCounts map[string]int `json:"scheme_counts"`
	WardCounts   map[string]int `json:"ward_counts"`
}

// RiskBand 风险分档
type RiskBand string

const (
	RiskLow    RiskBand = "low"
	RiskMedium RiskBand = "medium"
	RiskHigh   RiskBand = "high"
)

// 风险分档阈值
const (
	HighRiskThreshold   = 0.65
	MediumRiskThreshold = 0.35
)

// BandFor 按分数返回风险分档
func BandFor(score float64) RiskBand {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AgeBracket 年龄段
type AgeBracket string

const (
	AgeUnder25   AgeBracket = "under-25"
	Age25To34    AgeBracket = "25-34"
	Age35To44    AgeBracket = "35-44"
	Age45AndOver AgeBracket = "45-plus"
)

// BracketFor 按年龄返回年龄段
func BracketFor(age int) AgeBracket {
	switch {
	case age < 25:
		return AgeUnder25
	case age < 35:
		return Age25To34
	case age < 45:
		return Age35To44
	default:
		return Age45AndOver
	}
}

// IsHighRisk 风险分数 >= 0.65
func (p Patient) IsHighRisk() bool {
	return p.RiskScore >= HighRiskThreshold
}

// SchemeEligibleAny 是否符合至少一项补助计划
func (p Patient) SchemeEligibleAny() bool {
	return len(p.SchemeEligible) > 0
}
