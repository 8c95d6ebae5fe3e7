package quota

import "time"

type UsageResponse struct {
	PlanTier      string    `json:"plan_tier"`
	PlanName      string    `json:"plan_name"`
	AnalysesLimit int       `json:"analyses_limit"`
	AnalysesUsed  int       `json:"analyses_used"`
	Remaining     int       `json:"remaining"`
	ResetAt       time.Time `json:"reset_at"`
	UpgradeTo     string    `json:"upgrade_to,omitempty"`
}

func toUsageResponse(q *UsageQuota, c *Catalog) UsageResponse {
	resp := UsageResponse{
		PlanTier:      q.PlanTier,
		PlanName:      q.PlanTier,
		AnalysesLimit: q.AnalysesLimit,
		AnalysesUsed:  q.AnalysesUsed,
		Remaining:     q.Remaining(),
		ResetAt:       q.ResetAt,
	}
	if plan, err := c.Get(q.PlanTier); err == nil {
		resp.PlanName = plan.Name
		resp.UpgradeTo = plan.UpgradeTo
	}
	return resp
}
