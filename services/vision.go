package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"insureflow/config"
)

// VisionClient talks to the external document-recognition API used to
// auto-fill form fields from photographed documents.
type VisionClient struct {
	baseURL string
	appID   string
	secret  string
	client  *http.Client
}

func NewVisionClient(cfg *config.Config) *VisionClient {
	return &VisionClient{
		baseURL: cfg.VisionBaseURL,
		appID:   cfg.VisionAppID,
		secret:  cfg.VisionSecret,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IDCardFields is the extraction result for a person-identity document.
type IDCardFields struct {
	Name    string `json:"name"`
	IDCard  string `json:"idCard"`
	Address string `json:"address"`
}

// VehicleLicenseFields is the extraction result for a vehicle-registration
// document.
type VehicleLicenseFields struct {
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

func (v *VisionClient) basicAuthHeader() string {
	creds := v.appID + ":" + v.secret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// post sends the image payload and maps upstream failures to distinct
// human-readable messages: credentials, permission and rate-limit problems
// must not collapse into one generic error.
func (v *VisionClient) post(path string, image string, out interface{}) error {
	if v.appID == "" || v.secret == "" {
		return errors.New("document recognition is not configured: set VISION_APP_ID and VISION_SECRET")
	}

	body, _ := json.Marshal(map[string]string{"image": image})
	req, err := http.NewRequest(http.MethodPost, v.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build recognition request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", v.basicAuthHeader())

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("recognition service unreachable: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return errors.New("recognition service rejected the credentials: check VISION_APP_ID / VISION_SECRET")
	case http.StatusForbidden:
		return errors.New("recognition service denied access: the application lacks permission for this document type")
	case http.StatusTooManyRequests:
		return errors.New("recognition service rate limit reached: wait a moment and retry")
	default:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("recognition service error (%d): %s", resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unexpected recognition response: %v", err)
	}
	return nil
}

// RecognizeIDCard extracts identity fields from a photographed ID document.
func (v *VisionClient) RecognizeIDCard(image string) (*IDCardFields, error) {
	var fields IDCardFields
	if err := v.post("/rest/2.0/ocr/v1/idcard", image, &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}

// RecognizeVehicleLicense extracts vehicle fields from a photographed
// registration certificate.
func (v *VisionClient) RecognizeVehicleLicense(image string) (*VehicleLicenseFields, error) {
	var fields VehicleLicenseFields
	if err := v.post("/rest/2.0/ocr/v1/vehicle_license", image, &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}
