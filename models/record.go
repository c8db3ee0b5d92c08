package models

// Person holds the identity block of a proposer or an insured party.
type Person struct {
	Name    string `json:"name"`
	IDType  string `json:"idType"`
	IDCard  string `json:"idCard"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
}

// Vehicle describes the insured vehicle as entered by the admin side.
type Vehicle struct {
	Plate              string `json:"plate"`
	VIN                string `json:"vin"`
	EngineNo           string `json:"engineNo"`
	Brand              string `json:"brand"`
	VehicleOwner       string `json:"vehicleOwner"`
	RegisterDate       string `json:"registerDate"`
	CurbWeight         string `json:"curbWeight"`
	ApprovedLoad       string `json:"approvedLoad"`
	ApprovedPassengers string `json:"approvedPassengers"`
}

// Coverage is one line of the coverage plan. Premium is a decimal string
// ("100.00") so exact textual formatting survives round trips.
type Coverage struct {
	Name       string `json:"name"`
	Amount     string `json:"amount"`
	Deductible string `json:"deductible"`
	Premium    string `json:"premium"`
}

// Project holds region/period and the coverage plan. Premium is derived:
// it always equals the sum of the coverage premiums, see utils.SumPremiums.
type Project struct {
	Region    string     `json:"region"`
	Period    string     `json:"period"`
	Premium   string     `json:"premium"`
	Coverages []Coverage `json:"coverages"`
}

// PaymentConfig is configuration, not live state. WechatQrCode carries an
// embedded image payload (data URL).
type PaymentConfig struct {
	AlipayURL    string `json:"alipayUrl"`
	WechatQrCode string `json:"wechatQrCode"`
}

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// InsuranceRecord is the central entity. Created by the admin side with
// status pending; the client flow only observes it. Status moves
// pending -> paid once, never back.
type InsuranceRecord struct {
	OrderID  string        `json:"orderId"`
	Status   string        `json:"status"`
	Proposer Person        `json:"proposer"`
	Insured  Person        `json:"insured"`
	Vehicle  Vehicle       `json:"vehicle"`
	Project  Project       `json:"project"`
	Payment  PaymentConfig `json:"payment"`
}

// DisplayInsured returns the insured block with blank fields filled in from
// the proposer. Display fallback only: the record itself is not mutated.
func (r *InsuranceRecord) DisplayInsured() Person {
	ins := r.Insured
	if ins.Name == "" {
		ins.Name = r.Proposer.Name
	}
	if ins.IDType == "" {
		ins.IDType = r.Proposer.IDType
	}
	if ins.IDCard == "" {
		ins.IDCard = r.Proposer.IDCard
	}
	if ins.Mobile == "" {
		ins.Mobile = r.Proposer.Mobile
	}
	if ins.Address == "" {
		ins.Address = r.Proposer.Address
	}
	return ins
}

// HasIdentity reports whether the record carries the minimum the client
// flow can work with: a proposer identity and a vehicle identity.
func (r *InsuranceRecord) HasIdentity() bool {
	if r.Proposer.Name == "" || r.Proposer.IDCard == "" {
		return false
	}
	if r.Vehicle.Plate == "" || r.Vehicle.VIN == "" {
		return false
	}
	return true
}
