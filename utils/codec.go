package utils

import (
	"encoding/base64"
	"encoding/json"

	"insureflow/models"
)

// EncodeRecord serializes a record into a URL-safe token that can be
// carried inline in a link query parameter. Reversible for any record,
// including non-ASCII text and embedded image payloads.
func EncodeRecord(r *models.InsuranceRecord) string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeRecord parses a token back into a record. Returns false on
// malformed base64, malformed JSON, or a payload that lacks a proposer
// identity or a vehicle identity. It never panics and never propagates
// an error past this call; the caller decides how to surface the failure.
func DecodeRecord(token string) (*models.InsuranceRecord, bool) {
	if token == "" {
		return nil, false
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		// tolerate tokens produced with padding
		data, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return nil, false
		}
	}
	var r models.InsuranceRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}
	if !r.HasIdentity() {
		return nil, false
	}
	return &r, true
}
