package models

import "time"

// Flow steps, in order. The "short" variant skips StepVerify.
const (
	StepTerms     = "terms"
	StepVerify    = "verify"
	StepCheck     = "check"
	StepSign      = "sign"
	StepPay       = "pay"
	StepCompleted = "completed"
)

// Payment channels selectable on the pay step.
const (
	ChannelWechat = "wechat"
	ChannelAlipay = "alipay"
)

// FlowSession is the server-held state of one client walking the
// application flow. Serialized to JSON and kept in Redis keyed by ID.
type FlowSession struct {
	ID     string          `json:"id"`
	Record InsuranceRecord `json:"record"`
	Step   string          `json:"step"`

	// terms sub-state: which document is open and which have been read
	DocIndex int    `json:"docIndex"`
	DocsRead []bool `json:"docsRead"`

	// verify sub-state
	VerifyError bool `json:"verifyError"`

	// check sub-state (full variant only): OTP gate on the proceed action
	CheckOTPVerified bool `json:"checkOtpVerified"`

	// sign sub-state: true once the signature pad has content
	HasSignature bool `json:"hasSignature"`

	// pay sub-state
	Channel      string `json:"channel"`
	PollAttempts int    `json:"pollAttempts"`

	CreatedAt time.Time `json:"createdAt"`
}

// AllDocsRead reports whether every terms document is marked read.
func (s *FlowSession) AllDocsRead() bool {
	for _, read := range s.DocsRead {
		if !read {
			return false
		}
	}
	return true
}
