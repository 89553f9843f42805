package app

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"regexp"
	"strings"

	"ancile/internal/domain"
)

var passportRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{4,18}[A-Z0-9]$`)

// IdentityService is a deterministic stand-in for a document + face check.
// The same request always yields the same result.
type IdentityService struct{}

func NewIdentityService() *IdentityService { return &IdentityService{} }

func (s *IdentityService) Verify(_ context.Context, in domain.IdentityRequest) domain.IdentityResult {
	passport := strings.ToUpper(strings.TrimSpace(in.PassportNumber))
	if strings.TrimSpace(in.GuestName) == "" || !passportRe.MatchString(passport) {
		return domain.IdentityResult{Status: "failed", RiskAssessment: "HIGH", FacialMatchProbability: 0}
	}

	sum := sha1.Sum([]byte(passport + "|" + strings.ToLower(strings.TrimSpace(in.GuestName))))
	// 0.9000 .. 0.9999
	p := 0.9 + float64(binary.BigEndian.Uint16(sum[:2])%1000)/10000

	risk := "MEDIUM"
	if strings.Contains(strings.ToLower(in.IDType), "diplomatic") {
		risk = "LOW"
	}
	return domain.IdentityResult{Status: "passed", RiskAssessment: risk, FacialMatchProbability: p}
}
