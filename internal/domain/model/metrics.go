package model

// Metrics is a read-only rollup of the governance state at one instant.
type Metrics struct {
	Resources   ResourceMetrics
	Bookings    BookingMetrics
	Credentials CredentialMetrics
	Costs       CostMetrics
	Quotas      QuotaMetrics
}

// ResourceMetrics counts catalog entries.
type ResourceMetrics struct {
	Total     int
	ByType    map[string]int
	Available int
}

// BookingMetrics summarizes reservations relative to now.
type BookingMetrics struct {
	Total    int
	Active   int
	Today    int
	Upcoming []Booking
}

// CredentialMetrics counts vault entries.
type CredentialMetrics struct {
	Total        int
	ByType       map[CredentialType]int
	RecentlyUsed int
}

// CostMetrics carries ledger totals.
type CostMetrics struct {
	Total   float64
	ByType  map[string]float64
	ByAgent map[string]float64
}

// QuotaMetrics lists quotas at or past their warning threshold.
type QuotaMetrics struct {
	Total    int
	Warning  int
	Exceeded int
	Details  []QuotaStatus
}

// QuotaStatus is a quota's state at snapshot time.
type QuotaStatus struct {
	ID           string
	Type         QuotaType
	AgentID      *string
	UsagePercent float64
	State        QuotaState
}
