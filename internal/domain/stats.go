package domain

// Stats are the aggregate figures shown on the instructor dashboard.
type Stats struct {
	TotalUsers      int64   `json:"totalUsers"`
	ActiveUsers     int64   `json:"activeUsers"`
	TotalBMIRecords int64   `json:"totalBMIRecords"`
	AverageBMI      float64 `json:"averageBMI"`
}
