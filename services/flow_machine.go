package services

import (
	"errors"
	"strings"
	"time"

	"insureflow/models"
	"insureflow/utils"
)

// Flow variants. The source product shipped two inconsistent page flows;
// here they are one machine behind an explicit switch. "full" keeps the
// phone verification step and gates the confirmation screen behind an OTP.
// "short" skips verification, lets the confirmation screen proceed
// unconditionally and sends an already-paid record straight to completed
// at load time.
const (
	VariantFull  = "full"
	VariantShort = "short"
)

// Number of terms documents the client must page through.
const DefaultDocCount = 3

var ErrAlipayNotConfigured = errors.New("alipay payment link is not configured (payment.alipayUrl); contact support")

// FlowMachine drives a FlowSession through
// terms -> [verify] -> check -> sign -> pay -> completed.
// All mutators are no-ops when called on the wrong step, so a stale or
// duplicated request cannot corrupt a session.
type FlowMachine struct {
	variant  string
	docCount int
}

func NewFlowMachine(variant string, docCount int) *FlowMachine {
	if variant != VariantShort {
		variant = VariantFull
	}
	if docCount <= 0 {
		docCount = DefaultDocCount
	}
	return &FlowMachine{variant: variant, docCount: docCount}
}

func (m *FlowMachine) Variant() string {
	return m.variant
}

// NewSession starts a session at terms. In the short variant a record that
// is already paid when loaded short-circuits to completed.
func (m *FlowMachine) NewSession(r *models.InsuranceRecord) *models.FlowSession {
	s := &models.FlowSession{
		ID:        utils.GenerateSessionID(),
		Record:    *r,
		Step:      models.StepTerms,
		DocsRead:  make([]bool, m.docCount),
		CreatedAt: time.Now(),
	}
	if m.variant == VariantShort && r.Status == models.StatusPaid {
		s.Step = models.StepCompleted
	}
	return s
}

func (m *FlowMachine) afterTerms() string {
	if m.variant == VariantShort {
		return models.StepCheck
	}
	return models.StepVerify
}

// MarkDocumentRead marks document i as read. Only an explicit user action
// marks a document, never navigation.
func (m *FlowMachine) MarkDocumentRead(s *models.FlowSession, i int) bool {
	if s.Step != models.StepTerms || i < 0 || i >= len(s.DocsRead) {
		return false
	}
	s.DocsRead[i] = true
	return true
}

// AdvanceDocument moves to the next document, or past the last one to the
// next step. A no-op while the current document is unread.
func (m *FlowMachine) AdvanceDocument(s *models.FlowSession) bool {
	if s.Step != models.StepTerms {
		return false
	}
	if s.DocIndex < len(s.DocsRead) && !s.DocsRead[s.DocIndex] {
		return false
	}
	if s.DocIndex < len(s.DocsRead)-1 {
		s.DocIndex++
		return true
	}
	s.Step = m.afterTerms()
	return true
}

// SkipToCheck jumps over the remaining documents once every one of them is
// marked read. The skip never bypasses the verify gate: in the full
// variant it lands on verify, same as paging past the last document.
func (m *FlowMachine) SkipToCheck(s *models.FlowSession) bool {
	if s.Step != models.StepTerms || !s.AllDocsRead() {
		return false
	}
	s.Step = m.afterTerms()
	return true
}

// SubmitPhone is the verify gate: the entered value must equal the
// proposer's mobile in full, or exactly its last four digits. A mismatch
// keeps the session on verify with the error flag set; other entered data
// is untouched.
func (m *FlowMachine) SubmitPhone(s *models.FlowSession, phone string) bool {
	if s.Step != models.StepVerify {
		return false
	}
	mobile := s.Record.Proposer.Mobile
	ok := phone != "" && (phone == mobile ||
		(len(phone) == 4 && len(mobile) >= 4 && strings.HasSuffix(mobile, phone)))
	if !ok {
		s.VerifyError = true
		return false
	}
	s.VerifyError = false
	s.Step = models.StepCheck
	return true
}

// PassCheckOTP records that the confirmation-screen OTP gate was cleared.
// Code validation itself happens against Redis in the controller.
func (m *FlowMachine) PassCheckOTP(s *models.FlowSession) bool {
	if s.Step != models.StepCheck {
		return false
	}
	s.CheckOTPVerified = true
	return true
}

// Proceed leaves the confirmation screen for signing. In the full variant
// the OTP gate must have been cleared first; the short variant proceeds
// unconditionally.
func (m *FlowMachine) Proceed(s *models.FlowSession) bool {
	if s.Step != models.StepCheck {
		return false
	}
	if m.variant == VariantFull && !s.CheckOTPVerified {
		return false
	}
	s.Step = models.StepSign
	return true
}

// SetSignature tracks whether the signature pad has content. Set true on
// the first stroke release, reset by ClearSignature.
func (m *FlowMachine) SetSignature(s *models.FlowSession, has bool) bool {
	if s.Step != models.StepSign {
		return false
	}
	s.HasSignature = has
	return true
}

func (m *FlowMachine) ClearSignature(s *models.FlowSession) bool {
	return m.SetSignature(s, false)
}

// ConfirmSignature moves to pay; disabled until the pad has content.
func (m *FlowMachine) ConfirmSignature(s *models.FlowSession) bool {
	if s.Step != models.StepSign || !s.HasSignature {
		return false
	}
	s.Step = models.StepPay
	return true
}

// SelectChannel switches which payment affordance is shown. It never
// transitions the step.
func (m *FlowMachine) SelectChannel(s *models.FlowSession, channel string) bool {
	if s.Step != models.StepPay {
		return false
	}
	if channel != models.ChannelWechat && channel != models.ChannelAlipay {
		return false
	}
	s.Channel = channel
	return true
}

// AlipayURL returns the external payment URL for the alipay channel, or a
// configuration-missing error the user can act on.
func (m *FlowMachine) AlipayURL(s *models.FlowSession) (string, error) {
	if s.Step != models.StepPay {
		return "", errors.New("payment is not available on this step")
	}
	if s.Record.Payment.AlipayURL == "" {
		return "", ErrAlipayNotConfigured
	}
	return s.Record.Payment.AlipayURL, nil
}

// ForceCompleted is the poller's entry point: it marks the record paid and
// terminates the flow. Idempotent, so a poll racing a user action is
// harmless, and safe from any step because payment confirmation is
// authoritative.
func (m *FlowMachine) ForceCompleted(s *models.FlowSession) {
	if s.Step == models.StepCompleted {
		return
	}
	s.Record.Status = models.StatusPaid
	s.Step = models.StepCompleted
}
