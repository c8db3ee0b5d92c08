package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"insureflow/models"
	"insureflow/services"
	"insureflow/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// memorySessions is an in-memory SessionStore for handler tests. Sessions
// are copied through JSON so handler mutations stay isolated, same as with
// the Redis implementation.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string][]byte)}
}

func (m *memorySessions) Get(ctx context.Context, id string) (*models.FlowSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[id]
	if !ok {
		return nil, services.ErrSessionNotFound
	}
	var s models.FlowSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memorySessions) Save(ctx context.Context, s *models.FlowSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *memorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func flowRouter(variant string) (*gin.Engine, *services.PollerRegistry) {
	gin.SetMode(gin.TestMode)
	machine := services.NewFlowMachine(variant, 3)
	sessions := newMemorySessions()
	store := newMemoryStore()
	pollers := services.NewPollerRegistry()
	fc := NewFlowController(machine, sessions, store, pollers, nil, false)

	r := gin.New()
	flow := r.Group("/api/flow")
	flow.POST("/start", fc.Start)
	flow.GET("/:sid", fc.Get)
	flow.DELETE("/:sid", fc.Teardown)
	flow.POST("/:sid/read-doc", fc.ReadDoc)
	flow.POST("/:sid/advance", fc.Advance)
	flow.POST("/:sid/skip-to-check", fc.SkipToCheck)
	flow.POST("/:sid/verify-phone", fc.VerifyPhone)
	flow.POST("/:sid/proceed", fc.Proceed)
	flow.POST("/:sid/signature", fc.Signature)
	flow.POST("/:sid/channel", fc.Channel)
	flow.GET("/:sid/alipay-url", fc.AlipayURL)
	return r, pollers
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func startFlow(t *testing.T, r *gin.Engine, rec *models.InsuranceRecord) (string, map[string]interface{}) {
	t.Helper()
	token := utils.EncodeRecord(rec)
	w := postJSON(t, r, "/api/flow/start", map[string]string{"token": token})
	assert.Equal(t, 200, w.Code)

	var snap map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap["id"].(string), snap
}

func flowRecord() *models.InsuranceRecord {
	return &models.InsuranceRecord{
		Status: models.StatusPending,
		Proposer: models.Person{
			Name:   "张伟",
			IDCard: "110101199001011234",
			Mobile: "13800138000",
		},
		Vehicle: models.Vehicle{Plate: "京A88888", VIN: "LSVDU25G8PK123456"},
		Payment: models.PaymentConfig{AlipayURL: "https://qr.alipay.com/xyz"},
	}
}

func TestStartRejectsInvalidToken(t *testing.T) {
	r, _ := flowRouter(services.VariantFull)
	w := postJSON(t, r, "/api/flow/start", map[string]string{"token": "not-base64!!"})
	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "invalid")
}

func TestStartRequiresTokenOrID(t *testing.T) {
	r, _ := flowRouter(services.VariantFull)
	w := postJSON(t, r, "/api/flow/start", map[string]string{})
	assert.Equal(t, 400, w.Code)
}

func TestGetUnknownSession(t *testing.T) {
	r, _ := flowRouter(services.VariantFull)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/flow/nope", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 404, w.Code)
}

func TestAdvanceWithoutReadingIsRejected(t *testing.T) {
	r, _ := flowRouter(services.VariantFull)
	sid, snap := startFlow(t, r, flowRecord())
	assert.Equal(t, models.StepTerms, snap["step"])

	w := postJSON(t, r, fmt.Sprintf("/api/flow/%s/advance", sid), map[string]string{})
	assert.Equal(t, 400, w.Code)

	// state unchanged
	wGet := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/flow/"+sid, nil)
	r.ServeHTTP(wGet, req)
	var after map[string]interface{}
	json.Unmarshal(wGet.Body.Bytes(), &after)
	assert.Equal(t, models.StepTerms, after["step"])
	assert.Equal(t, float64(0), after["docIndex"])
}

func TestShortVariantWalkToPay(t *testing.T) {
	r, _ := flowRouter(services.VariantShort)
	sid, _ := startFlow(t, r, flowRecord())

	for i := 0; i < 3; i++ {
		w := postJSON(t, r, fmt.Sprintf("/api/flow/%s/read-doc", sid), map[string]int{"index": i})
		assert.Equal(t, 200, w.Code)
		w = postJSON(t, r, fmt.Sprintf("/api/flow/%s/advance", sid), map[string]string{})
		assert.Equal(t, 200, w.Code)
	}

	// short variant: no verify step, proceed is unconditional
	w := postJSON(t, r, fmt.Sprintf("/api/flow/%s/proceed", sid), map[string]string{})
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), models.StepSign)

	w = postJSON(t, r, fmt.Sprintf("/api/flow/%s/signature", sid), map[string]string{"action": "confirm"})
	assert.Equal(t, 400, w.Code, "confirm without signature content is rejected")

	w = postJSON(t, r, fmt.Sprintf("/api/flow/%s/signature", sid), map[string]string{"action": "set"})
	assert.Equal(t, 200, w.Code)
	w = postJSON(t, r, fmt.Sprintf("/api/flow/%s/signature", sid), map[string]string{"action": "confirm"})
	assert.Equal(t, 200, w.Code)

	var snap map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &snap)
	assert.Equal(t, models.StepPay, snap["step"])

	// selecting a channel does not transition
	w = postJSON(t, r, fmt.Sprintf("/api/flow/%s/channel", sid), map[string]string{"channel": "alipay"})
	assert.Equal(t, 200, w.Code)
	json.Unmarshal(w.Body.Bytes(), &snap)
	assert.Equal(t, models.StepPay, snap["step"])

	wGet := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/flow/%s/alipay-url", sid), nil)
	r.ServeHTTP(wGet, req)
	assert.Equal(t, 200, wGet.Code)
	assert.Contains(t, wGet.Body.String(), "qr.alipay.com")
}

func TestFullVariantVerifyGate(t *testing.T) {
	r, _ := flowRouter(services.VariantFull)
	sid, _ := startFlow(t, r, flowRecord())

	for i := 0; i < 3; i++ {
		postJSON(t, r, fmt.Sprintf("/api/flow/%s/read-doc", sid), map[string]int{"index": i})
		postJSON(t, r, fmt.Sprintf("/api/flow/%s/advance", sid), map[string]string{})
	}

	w := postJSON(t, r, fmt.Sprintf("/api/flow/%s/verify-phone", sid), map[string]string{"phone": "0000"})
	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	state := resp["state"].(map[string]interface{})
	assert.Equal(t, models.StepVerify, state["step"])
	assert.Equal(t, true, state["verifyError"])

	w = postJSON(t, r, fmt.Sprintf("/api/flow/%s/verify-phone", sid), map[string]string{"phone": "8000"})
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), models.StepCheck)

	// OTP gate blocks proceed in the full variant
	w = postJSON(t, r, fmt.Sprintf("/api/flow/%s/proceed", sid), map[string]string{})
	assert.Equal(t, 400, w.Code)
}

func TestShortVariantPaidRecordShortCircuits(t *testing.T) {
	r, _ := flowRouter(services.VariantShort)
	rec := flowRecord()
	rec.Status = models.StatusPaid
	_, snap := startFlow(t, r, rec)
	assert.Equal(t, models.StepCompleted, snap["step"])
}

func TestTeardownRemovesSession(t *testing.T) {
	r, _ := flowRouter(services.VariantFull)
	sid, _ := startFlow(t, r, flowRecord())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/flow/"+sid, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/flow/"+sid, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 404, w.Code)
}

func TestDisplayInsuredFallsBackToProposer(t *testing.T) {
	r, _ := flowRouter(services.VariantFull)
	_, snap := startFlow(t, r, flowRecord())

	display := snap["displayInsured"].(map[string]interface{})
	assert.Equal(t, "张伟", display["name"])

	record := snap["record"].(map[string]interface{})
	insured := record["insured"].(map[string]interface{})
	assert.Equal(t, "", insured["name"], "the underlying record is not mutated by the display fallback")
}
