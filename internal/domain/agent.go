package domain

import "time"

// Agent is a travel agent selling group rooms. ReferredBy is empty for
// agents who joined without a referral.
type Agent struct {
	ID         string
	Name       string
	ReferredBy string
	CreatedAt  time.Time
}

// Conversion links a newly signed-up agent to the agent whose referral link
// brought them in.
type Conversion struct {
	NewAgentID   string `json:"new_agent_id"`
	NewAgentName string `json:"new_agent_name"`
	ReferrerID   string `json:"referrer_agent_id"`
}

// AgentVolume is one referred agent's confirmed booking volume.
type AgentVolume struct {
	AgentID     string `json:"agent_id"`
	VolumeCents int64  `json:"volume_cents"`
}

// ReferralNetwork is what a referrer earns from the agents they brought in.
type ReferralNetwork struct {
	AgentID       string        `json:"agent_id"`
	Agents        []AgentVolume `json:"referred_agents"`
	VolumeCents   int64         `json:"network_volume_cents"`
	OverrideCents int64         `json:"override_cents"`
}
