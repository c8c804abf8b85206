package model

// DashboardStats is the per-tenant aggregate view backing the overview
// screen.
type DashboardStats struct {
	TotalCompanies  int     `json:"total_companies"`
	TotalPosts      int     `json:"total_posts"`
	ProductLaunches int     `json:"product_launches"`
	RecentActivity  int     `json:"recent_activity"`
	TopScoringPosts []*Post `json:"top_scoring_posts"`
}
