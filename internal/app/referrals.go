package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ancile/internal/domain"
)

// OverrideBasisPoints is the referrer's share of a referred agent's volume (0.5%).
const OverrideBasisPoints = 50

var ErrInvalidReferral = errors.New("invalid referral")

var footerTmpl = template.Must(template.New("footer").Parse(`<div style="margin-top: 30px; border-top: 1px solid #eee; padding-top: 20px; text-align: center; font-family: sans-serif; color: #666;">
  <p>Your trip is managed by <strong>{{.AgentName}}</strong> using Project Ancile.</p>
  <p style="font-size: 12px;">
    Planning your own group trip?
    <a href="{{.Link}}" style="color: #007bff; text-decoration: none;">Launch your business with Ancile.</a>
  </p>
</div>
`))

// ReferralService runs the agent referral loop: voucher footers carry a
// sign-up link, sign-ups are linked to the referrer, and the referrer earns
// an override on the referred agents' confirmed volume.
type ReferralService struct {
	repo domain.AgentRepository
	base string
	now  func() time.Time
}

func NewReferralService(repo domain.AgentRepository, base string) *ReferralService {
	return &ReferralService{
		repo: repo,
		base: strings.TrimRight(base, "/"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Link is the sign-up URL that credits agentID.
func (s *ReferralService) Link(agentID string) string {
	return s.base + "/become-agent?" + url.Values{"ref": {agentID}}.Encode()
}

// Footer renders the guest voucher footer. The agent name is HTML-escaped.
func (s *ReferralService) Footer(agentID, agentName string) (string, error) {
	if strings.TrimSpace(agentID) == "" || strings.TrimSpace(agentName) == "" {
		return "", fmt.Errorf("%w: agent id and name are required", ErrInvalidReferral)
	}
	var b strings.Builder
	err := footerTmpl.Execute(&b, struct {
		AgentName string
		Link      string
	}{agentName, s.Link(agentID)})
	return b.String(), err
}

// TrackConversion links a new agent to their referrer.
func (s *ReferralService) TrackConversion(ctx context.Context, c domain.Conversion) error {
	c.NewAgentID = strings.TrimSpace(c.NewAgentID)
	c.ReferrerID = strings.TrimSpace(c.ReferrerID)
	switch {
	case c.NewAgentID == "" || c.ReferrerID == "":
		return fmt.Errorf("%w: new_agent_id and referrer_agent_id are required", ErrInvalidReferral)
	case c.NewAgentID == c.ReferrerID:
		return fmt.Errorf("%w: an agent cannot refer themselves", ErrInvalidReferral)
	}
	if err := s.repo.LinkReferral(ctx, c, s.now()); err != nil {
		return err
	}
	log.Info().Str("referrer", c.ReferrerID).Str("agent", c.NewAgentID).Msg("agent referral linked")
	return nil
}

// OverrideCents is the referrer's cut of volumeCents, rounded down.
func OverrideCents(volumeCents int64) int64 {
	return volumeCents * OverrideBasisPoints / 10000
}

// Network sums the confirmed volume of every agent agentID referred and
// computes the override on it.
func (s *ReferralService) Network(ctx context.Context, agentID string) (domain.ReferralNetwork, error) {
	vols, err := s.repo.NetworkVolume(ctx, agentID)
	if err != nil {
		return domain.ReferralNetwork{}, err
	}
	n := domain.ReferralNetwork{AgentID: agentID, Agents: vols}
	if n.Agents == nil {
		n.Agents = []domain.AgentVolume{}
	}
	for _, v := range vols {
		n.VolumeCents += v.VolumeCents
	}
	n.OverrideCents = OverrideCents(n.VolumeCents)
	log.Debug().Str("agent", agentID).Int64("override_cents", n.OverrideCents).Msg("referral override computed")
	return n, nil
}
